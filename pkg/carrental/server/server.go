package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/nekruzvatanshoev/carrental/pkg/carrental/catalog"
	"github.com/nekruzvatanshoev/carrental/pkg/carrental/logger"
	"github.com/nekruzvatanshoev/carrental/pkg/carrental/search"
)

const requestIDHeader = "X-Request-ID"

// Pinger reports database reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Search      *search.Service
	Catalog     *catalog.Service
	DB          Pinger
	Log         *logger.Logger
	CORSOrigins []string
}

// NewHTTPServer returns a new HTTP server
func NewHTTPServer(addr string, deps Deps) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewHandler(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the routed and wrapped handler.
func NewHandler(deps Deps) http.Handler {
	server := newHTTPServer(deps)

	r := mux.NewRouter()
	r.HandleFunc("/", server.Root).Methods(http.MethodGet)
	r.HandleFunc("/health", server.Health).Methods(http.MethodGet)
	r.HandleFunc("/cars", server.GetCars).Methods(http.MethodGet)
	r.HandleFunc("/cars/{id}", server.GetCar).Methods(http.MethodGet)
	r.HandleFunc("/filters", server.GetFilters).Methods(http.MethodGet)
	r.HandleFunc("/locations", server.GetLocations).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(server.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(server.methodNotAllowed)

	var h http.Handler = trimTrailingSlash(r)
	h = handlers.CustomLoggingHandler(io.Discard, h, server.accessLog)
	h = withRequestID(h)
	h = handlers.CORS(
		handlers.AllowedOrigins(deps.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", requestIDHeader}),
		handlers.ExposedHeaders([]string{requestIDHeader}),
		handlers.AllowCredentials(),
	)(h)
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(server.log),
		handlers.PrintRecoveryStack(true),
	)(h)
}

type httpServer struct {
	log     *logger.Logger
	search  *search.Service
	catalog *catalog.Service
	db      Pinger
	limits  search.Limits
}

func newHTTPServer(deps Deps) *httpServer {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	limits := search.DefaultLimits
	if deps.Search != nil {
		limits = deps.Search.Limits()
	}
	return &httpServer{
		log:     log.With("component", "http"),
		search:  deps.Search,
		catalog: deps.Catalog,
		db:      deps.DB,
		limits:  limits,
	}
}

// trimTrailingSlash serves "/cars/" as "/cars" without a redirect.
func trimTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > 1 && strings.HasSuffix(r.URL.Path, "/") {
			r.URL.Path = strings.TrimRight(r.URL.Path, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}

// withRequestID keeps a client supplied X-Request-ID or assigns a new one,
// and echoes it on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func requestID(r *http.Request) string {
	return r.Header.Get(requestIDHeader)
}

func (h *httpServer) accessLog(_ io.Writer, p handlers.LogFormatterParams) {
	h.log.Info("%s %s %d %dB %s request_id=%s",
		p.Request.Method, p.URL.RequestURI(), p.StatusCode, p.Size,
		time.Since(p.TimeStamp).Round(time.Microsecond), requestID(p.Request))
}
