package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	Mux *mux.Router
}

func New() *Server {
	return &Server{Mux: mux.NewRouter()}
}

// Handler wraps the router in request id, logging and per-route metrics middleware.
func (s *Server) Handler(requests *prometheus.CounterVec) http.Handler {
	s.Mux.Use(mux.MiddlewareFunc(Metrics(requests)))
	return RequestID(Logging(s.Mux))
}

// RegisterOps mounts /healthz, /readyz and /metrics.
func (s *Server) RegisterOps(gatherer prometheus.Gatherer, ready ...ReadyzCheck) {
	s.Mux.HandleFunc("/healthz", Healthz()).Methods(http.MethodGet)
	s.Mux.HandleFunc("/readyz", Readyz(readyTimeout, ready...)).Methods(http.MethodGet)
	s.Mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}
