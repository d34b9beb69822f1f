package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/hfsm"
	"github.com/aretw0/hfsm/internal/logging"
	"github.com/aretw0/hfsm/internal/presentation/graph"
	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/dsl"
	"github.com/aretw0/hfsm/pkg/observability"
	"github.com/aretw0/hfsm/pkg/ports"
	"github.com/aretw0/hfsm/pkg/session"
)

// Server exposes a session manager over HTTP.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	watcher  ports.Watchable
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts /metrics serving g.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithWatcher streams graph source changes on GET /events.
func WithWatcher(w ports.Watchable) Option {
	return func(s *Server) {
		s.watcher = w
	}
}

// NewHandler creates a new HTTP handler for the session manager.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Sessions: sessions,
		Streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	r.Post("/transition", s.Transition)
	r.Post("/broadcast", s.Broadcast)
	r.Get("/events", s.SubscribeEvents)
	r.Route("/machines", func(r chi.Router) {
		r.Get("/", s.ListMachines)
		r.Route("/{id}", func(r chi.Router) {
			r.Put("/", s.StartMachine)
			r.Get("/", s.GetMachine)
			r.Delete("/", s.DeleteMachine)
			r.Post("/arrows", s.FireArrows)
		})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ArrowList decodes arrows given either as "a:b/x,a/y" strings or as
// arrays of [source, name] steps.
type ArrowList []domain.Arrow

// UnmarshalJSON implements json.Unmarshaler.
func (l *ArrowList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(ArrowList, 0, len(raw))
	for _, item := range raw {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			a, err := domain.ParseArrow(text)
			if err != nil {
				return err
			}
			out = append(out, a)
			continue
		}
		var a domain.Arrow
		if err := json.Unmarshal(item, &a); err != nil {
			return err
		}
		out = append(out, a)
	}
	*l = out
	return nil
}

// TransitionRequest is the body of POST /transition.
// A missing state starts from the initial configuration.
type TransitionRequest struct {
	State  domain.FSMState `json:"state,omitempty"`
	Arrows ArrowList       `json:"arrows"`
}

// TransitionResponse is the result of a stateless transition.
type TransitionResponse struct {
	State domain.FSMState  `json:"state"`
	Diff  domain.StateDiff `json:"diff"`
}

// FireRequest is the body of POST /machines/{id}/arrows.
type FireRequest struct {
	Arrows ArrowList `json:"arrows"`
}

// BroadcastRequest is the body of POST /broadcast.
type BroadcastRequest struct {
	MachineIDs []string  `json:"machine_ids"`
	Arrows     ArrowList `json:"arrows"`
}

// MachineResponse describes one stored machine.
type MachineResponse struct {
	MachineID string          `json:"machine_id"`
	State     domain.FSMState `json:"state"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "hfsm-http",
		"version": strings.TrimSpace(hfsm.Version),
	})
}

// GetGraph handles GET /graph?format=json|mermaid|dot. With machine_id the
// rendering highlights that machine's active configuration.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	g := s.Sessions.Engine().Graph()
	format := r.URL.Query().Get("format")

	if format == "" || format == "json" {
		s.writeJSON(w, http.StatusOK, dsl.Export(g))
		return
	}

	var overlay *graph.Overlay
	if id := r.URL.Query().Get("machine_id"); id != "" {
		state, err := s.Sessions.Load(r.Context(), id)
		if err != nil {
			s.writeError(w, "GetGraph", err)
			return
		}
		overlay = graph.NewOverlay(state, nil)
	}

	out, err := graph.Render(g, graph.Format(format), overlay)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, out)
}

// Transition handles POST /transition without touching the store.
func (s *Server) Transition(w http.ResponseWriter, r *http.Request) {
	var body TransitionRequest
	if !s.decode(w, r, "Transition", &body) {
		return
	}

	engine := s.Sessions.Engine()
	current := body.State
	if current == nil {
		var err error
		if current, err = engine.Initial(r.Context()); err != nil {
			s.writeError(w, "Transition", err)
			return
		}
	}

	next, err := engine.Transition(r.Context(), current, body.Arrows...)
	if err != nil {
		s.writeError(w, "Transition", err)
		return
	}
	s.writeJSON(w, http.StatusOK, TransitionResponse{State: next, Diff: domain.Diff(current, next)})
}

// ListMachines handles GET /machines.
func (s *Server) ListMachines(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, "ListMachines", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"machines": ids})
}

// StartMachine handles PUT /machines/{id}: load or start.
func (s *Server) StartMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.Sessions.LoadOrStart(r.Context(), id)
	if err != nil {
		s.writeError(w, "StartMachine", err)
		return
	}
	s.writeJSON(w, http.StatusOK, MachineResponse{MachineID: id, State: state})
}

// GetMachine handles GET /machines/{id}.
func (s *Server) GetMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.Sessions.Load(r.Context(), id)
	if err != nil {
		s.writeError(w, "GetMachine", err)
		return
	}
	s.writeJSON(w, http.StatusOK, MachineResponse{MachineID: id, State: state})
}

// DeleteMachine handles DELETE /machines/{id}.
func (s *Server) DeleteMachine(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, "DeleteMachine", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FireArrows handles POST /machines/{id}/arrows.
func (s *Server) FireArrows(w http.ResponseWriter, r *http.Request) {
	var body FireRequest
	if !s.decode(w, r, "FireArrows", &body) {
		return
	}

	out, err := s.Sessions.Fire(r.Context(), chi.URLParam(r, "id"), body.Arrows...)
	if err != nil {
		s.writeError(w, "FireArrows", err)
		return
	}
	s.publish(out)
	s.writeJSON(w, http.StatusOK, out)
}

// Broadcast handles POST /broadcast. Completed outcomes are returned even
// when one machine fails.
func (s *Server) Broadcast(w http.ResponseWriter, r *http.Request) {
	var body BroadcastRequest
	if !s.decode(w, r, "Broadcast", &body) {
		return
	}

	outcomes, err := s.Sessions.Broadcast(r.Context(), body.MachineIDs, body.Arrows...)
	for _, out := range outcomes {
		s.publish(out)
	}
	if err != nil {
		s.writeError(w, "Broadcast", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
}

func (s *Server) publish(out *session.Outcome) {
	if out.Diff.IsEmpty() {
		s.logger.Debug("FireArrows: No diff calculated", "machine_id", out.MachineID)
		return
	}
	if bytes, err := json.Marshal(out.Diff); err == nil {
		s.Streams.Broadcast(out.MachineID, string(bytes))
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		s.logger.Warn(op+": Invalid request body", "err", err)
		return false
	}
	return true
}

// StatusCode maps engine and store errors to HTTP statuses.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrMachineNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoArrowFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConflictingStateUpdate):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Warn(op+" rejected", "err", err, "kind", observability.ErrorKind(err))
	}
	s.writeJSON(w, code, map[string]string{
		"error": err.Error(),
		"kind":  observability.ErrorKind(err),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
