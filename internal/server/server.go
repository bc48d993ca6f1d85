package server

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"guestbook/internal/metrics"
	"guestbook/internal/render"
	"guestbook/internal/store"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// maxFormBytes caps the body of a message submission.
const maxFormBytes = 1 << 20

type Options struct {
	Root         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Metrics defaults to a private registry when nil.
	Metrics *metrics.Metrics
}

type Server struct {
	store    store.Store
	renderer *render.Renderer
	logger   *zap.Logger
	metrics  *metrics.Metrics
	root     string
	opts     Options
	router   *mux.Router
	server   *http.Server
}

func NewServer(st store.Store, renderer *render.Renderer, logger *zap.Logger, opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(prometheus.NewRegistry())
	}

	s := &Server{
		store:    st,
		renderer: renderer,
		logger:   logger,
		metrics:  opts.Metrics,
		root:     opts.Root,
		opts:     opts,
		// The static handler does its own path cleaning
		router: mux.NewRouter().SkipClean(true),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	s.router.HandleFunc("/message", s.handleMessageForm).Methods("GET")
	s.router.HandleFunc("/message", s.handleSubmit).Methods("POST")
	s.router.HandleFunc("/read", s.handleRead).Methods("GET")

	// Anything else is looked up under the served root
	s.router.PathPrefix("/").HandlerFunc(s.handleStatic).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(s.notFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.notFound)
}

// Handler returns the router wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.logRequests(s.instrument(s.router)))
}

// Start launches the HTTP server
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	s.logger.Info("Web server listening", zap.String("addr", addr), zap.String("root", s.root))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, filepath.Join(s.root, "index.html"), "text/html")
}

func (s *Server) handleMessageForm(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, filepath.Join(s.root, "message.html"), "text/html")
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	// Load always hands back a usable document, even alongside an error
	doc, err := s.store.Load(r.Context())
	if err != nil {
		s.logger.Error("Failed to load messages", zap.Error(err))
		s.metrics.StoreErrors.WithLabelValues("load").Inc()
	}

	page, err := s.renderer.Messages(doc)
	if err != nil {
		s.logger.Error("Template error", zap.Error(err))
		s.notFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFormBytes))
	if err != nil {
		s.logger.Debug("Failed to read form body", zap.Error(err))
		s.notFound(w, r)
		return
	}

	// The body is parsed as urlencoded whatever the Content-Type says
	form := parseForm(string(body))

	username := form.Get("username")
	message := form.Get("message")
	if username == "" || message == "" {
		s.notFound(w, r)
		return
	}

	// Storage failures are not surfaced to the client
	msg, err := s.store.Append(r.Context(), username, message)
	if err != nil {
		s.logger.Error("Failed to save message", zap.String("username", username), zap.Error(err))
		s.metrics.StoreErrors.WithLabelValues("append").Inc()
	} else {
		s.logger.Info("Message saved", zap.String("timestamp", msg.Timestamp), zap.String("username", username))
		s.metrics.MessagesAppended.Inc()
	}

	http.Redirect(w, r, "/read", http.StatusSeeOther)
}
