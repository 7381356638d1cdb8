package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cuemby/bsgo/pkg/backup"
	"github.com/cuemby/bsgo/pkg/log"
	"github.com/cuemby/bsgo/pkg/metrics"
)

// Server is bsdaemon's HTTP front door: health, readiness, metrics, and a
// ping endpoint, instrumented the way the teacher instrumented its gRPC
// methods.
type Server struct {
	facade *backup.Facade
	mux    *http.ServeMux
	stopCh chan struct{}
}

// NewServer registers bsdaemon's routes against facade.
func NewServer(facade *backup.Facade) *Server {
	mux := http.NewServeMux()
	s := &Server{facade: facade, mux: mux, stopCh: make(chan struct{})}

	mux.HandleFunc("/health", requestMetrics("health", methodGuard(http.MethodGet, metrics.HealthHandler())))
	mux.HandleFunc("/ready", requestMetrics("ready", methodGuard(http.MethodGet, metrics.ReadyHandler())))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ping", requestMetrics("ping", methodGuard(http.MethodPost, s.pingHandler)))
	mux.HandleFunc("/browse", requestMetrics("browse", methodGuard(http.MethodGet, s.browseHandler)))

	// The "api" critical component is ready once its routes are registered;
	// "database" and "blobstore" are reported by refreshComponents.
	metrics.RegisterComponent("api", true, "")

	return s
}

// Start refreshes component health once, begins refreshing it every 10
// seconds, and blocks serving addr until the process is interrupted or an
// unrecoverable listener error occurs.
func (s *Server) Start(addr string) error {
	refreshComponents(s.facade)
	go s.refreshLoop()

	server := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Logger.Info().Str("addr", addr).Msg("bsdaemon: listening")
	return server.ListenAndServe()
}

// Stop halts the readiness refresh loop. It does not close the underlying
// listener: Start keeps serving until the process exits or the listener
// fails.
func (s *Server) Stop() {
	close(s.stopCh)
}

func (s *Server) refreshLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			refreshComponents(s.facade)
		case <-s.stopCh:
			return
		}
	}
}

// pingHandler backs the /ping smoke-test endpoint: the daemon echoes
// whatever JSON object the caller sent, verbatim, plus a server timestamp.
func (s *Server) pingHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	echo := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &echo); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
	}
	echo["time"] = time.Now()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(echo)
}

// browseHandler serves the virtual directory listing over HTTP: every path
// whose latest event's action is in {Added, Modified, Unchanged}, paginated
// by the skip/limit query parameters.
func (s *Server) browseHandler(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		http.Error(w, "invalid skip", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}

	uow, err := s.facade.CreateUnitOfWork(r.Context())
	if err != nil {
		http.Error(w, "failed to open database", http.StatusServiceUnavailable)
		return
	}
	defer uow.Close()

	entries, err := uow.FileEvent.List(uow.Paths, skip, limit)
	if err != nil {
		http.Error(w, "failed to list", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// methodGuard rejects requests that don't match method before delegating to
// next.
func methodGuard(method string, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	}
}
