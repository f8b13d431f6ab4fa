package xhttp

import (
	"net"
	"os"
	"os/signal"
	"reflect"
	"runtime"
	"slices"
	"syscall"
	"time"

	"github.com/nimasrn/billing-console/pkg/logger"
	"github.com/valyala/fasthttp"
)

type RequestHeader = fasthttp.RequestHeader
type ResponseHeader = fasthttp.ResponseHeader
type Server = fasthttp.Server

// ServerOption is the subset of fasthttp.Server settings the console tunes.
type ServerOption struct {
	Name string

	ReadBufferSize  int
	WriteBufferSize int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration

	// long idle connections exhaust file descriptors
	IdleTimeout time.Duration

	// console payloads are small JSON documents
	MaxRequestBodySize int

	// upper bound for a whole handler, outbound billing calls included
	RequestTimeout time.Duration

	Concurrency   int
	MaxConnsPerIP int

	Logger logger.Logger
}

var DefaultServerOption = ServerOption{
	Name:               "billing-console",
	ReadBufferSize:     1024 * 4, // also, max header size
	WriteBufferSize:    1024 * 4,
	ReadTimeout:        time.Second * 5,
	WriteTimeout:       time.Second * 65,
	IdleTimeout:        time.Second * 10,
	MaxRequestBodySize: 64 * 1024,
	RequestTimeout:     time.Second * 60,
	Concurrency:        2_000,
	MaxConnsPerIP:      200,
}

type Engine struct {
	*Router
	*Server
	option ServerOption
	middle []MiddlewareFunc
}

func newServer(options ServerOption) *fasthttp.Server {
	s := &fasthttp.Server{
		Handler:            NotFoundHandler,
		Name:               options.Name,
		Concurrency:        options.Concurrency,
		ReadBufferSize:     options.ReadBufferSize,
		WriteBufferSize:    options.WriteBufferSize,
		ReadTimeout:        options.ReadTimeout,
		WriteTimeout:       options.WriteTimeout,
		IdleTimeout:        options.IdleTimeout,
		MaxConnsPerIP:      options.MaxConnsPerIP,
		MaxRequestBodySize: options.MaxRequestBodySize,
		ErrorHandler: func(ctx *RequestCtx, err error) {
			logger.Warn("[xhttp] request error", "error", err, "ip", ctx.RemoteIP().String())
			writeNotice(ctx, StatusBadRequest, "malformed request")
		},
		TCPKeepalive:                 true,
		DisablePreParseMultipartForm: true,
		NoDefaultServerHeader:        true,
		NoDefaultDate:                true,
		CloseOnShutdown:              true,
	}
	if options.Logger != nil {
		s.Logger = options.Logger
	}
	return s
}

func NewServer(options ServerOption) *Engine {
	return &Engine{
		Server: newServer(options),
		Router: NewRouter(),
		option: options,
	}
}

// CreateServer is an engine with the default options, router and logger.
func CreateServer() *Engine {
	option := DefaultServerOption
	option.Logger = logger.GetLogger()
	s := NewServer(option)
	s.Router = CreateDefaultRouter()
	return s
}

func (e *Engine) ListenAndServe(addr string) error {
	e.DoRouting()
	logger.Info("[xhttp] server is listening", "addr", addr)
	return e.Server.ListenAndServe(addr)
}

// Serve accepts connections from ln until Shutdown.
func (e *Engine) Serve(ln net.Listener) error {
	e.DoRouting()
	logger.Info("[xhttp] server is listening", "addr", ln.Addr().String())
	return e.Server.Serve(ln)
}

// DoRouting installs the router behind the registered middlewares. The
// first middleware passed to Use runs first.
func (e *Engine) DoRouting() {
	for method, route := range e.Router.List() {
		for _, r := range route {
			logger.Debug("[xhttp] route registered", "method", method, "path", r)
		}
	}
	e.Server.Handler = e.Handler()
}

// Handler composes the router and middlewares into one handler. Routes run
// under RequestTimeout, inside every middleware.
func (e *Engine) Handler() RequestHandler {
	h := e.Router.Handler
	if e.option.RequestTimeout > 0 {
		h = TimeoutMiddleware(e.option.RequestTimeout)(h)
	}
	chain := slices.Clone(e.middle)
	slices.Reverse(chain)
	for i, m := range chain {
		h = m(h)
		logger.Debug("[xhttp] middleware registered", "index", len(chain)-i, "name", runtime.FuncForPC(reflect.ValueOf(m).Pointer()).Name())
	}
	return h
}

// CloseOnSignal shuts the server down on SIGINT, SIGTERM or SIGQUIT.
func (e *Engine) CloseOnSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		s := <-sig
		logger.Info("[xhttp] signal received", "signal", s.String())
		e.Shutdown()
	}()
}

// Use adds middleware to the end of the chain.
func (e *Engine) Use(middleware MiddlewareFunc) {
	e.middle = append(e.middle, middleware)
}

// Shutdown waits for open requests to finish, then closes the listener.
func (e *Engine) Shutdown() {
	logger.Info("[xhttp] server is shutting down", "pid", os.Getpid())
	if err := e.Server.Shutdown(); err != nil {
		logger.Error("[xhttp] error while shutting down", "error", err)
	}
}
