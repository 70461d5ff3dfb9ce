package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"GreenDeck/internal/deck"
	"GreenDeck/internal/logger"
	"GreenDeck/internal/model"
	"GreenDeck/internal/progress"
	"GreenDeck/internal/recorder"
	"GreenDeck/internal/session"
)

const (
	LearnerHeader = "X-Learner-ID"
	LearnerCookie = "greendeck_learner"
)

// Options tunes server behaviour.
type Options struct {
	// SingleUser pins every request to the default learner.
	SingleUser bool
}

// Server exposes the deck, learner progress and the bond calculator over
// HTTP and pushes progress changes to websocket clients.
type Server struct {
	deck     *deck.Deck
	registry *session.Registry
	recorder recorder.Recorder
	hub      *Hub
	log      *logger.Logger
	opts     Options
	router   *mux.Router
}

// New builds the server and its routes.
func New(d *deck.Deck, reg *session.Registry, rec recorder.Recorder, log *logger.Logger, opts Options) *Server {
	s := &Server{
		deck:     d,
		registry: reg,
		recorder: rec,
		log:      log.With("component", "Server"),
		opts:     opts,
	}
	s.hub = NewHub(s.log)
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close disconnects all websocket clients.
func (s *Server) Close() {
	s.hub.Close()
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/deck", s.handleDeck).Methods(http.MethodGet)
	api.HandleFunc("/slides/{index:[0-9]+}", s.handleSlide).Methods(http.MethodGet)

	learner := api.NewRoute().Subrouter()
	learner.Use(s.resolveLearner)
	learner.HandleFunc("/progress", s.handleProgress).Methods(http.MethodGet)
	learner.HandleFunc("/progress/next", s.handleCommand(cmdNext)).Methods(http.MethodPost)
	learner.HandleFunc("/progress/previous", s.handleCommand(cmdPrevious)).Methods(http.MethodPost)
	learner.HandleFunc("/progress/goto", s.handleCommand(cmdGoto)).Methods(http.MethodPost)
	learner.HandleFunc("/progress/sections/{id:[0-9]+}", s.handleSection).Methods(http.MethodPost)
	learner.HandleFunc("/progress/milestones", s.handleCommand(cmdComplete)).Methods(http.MethodPost)
	learner.HandleFunc("/progress/key", s.handleCommand(cmdKey)).Methods(http.MethodPost)
	learner.HandleFunc("/progress/reset", s.handleReset).Methods(http.MethodPost)
	learner.HandleFunc("/bond", s.handleBond).Methods(http.MethodGet)

	ws := r.NewRoute().Subrouter()
	ws.Use(s.resolveLearner)
	ws.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	return r
}

// ProgressView is what clients receive after every read or change.
type ProgressView struct {
	LearnerID   string              `json:"learnerId"`
	State       model.ProgressState `json:"state"`
	Derived     model.DerivedState  `json:"derived"`
	Slide       model.Slide         `json:"slide"`
	TotalSlides int                 `json:"totalSlides"`
}

func (s *Server) view(learnerID string, state model.ProgressState) ProgressView {
	slide, _ := s.deck.Slide(state.CurrentSlide)
	return ProgressView{
		LearnerID:   learnerID,
		State:       state,
		Derived:     progress.Derive(s.deck, state),
		Slide:       slide,
		TotalSlides: s.deck.Len(),
	}
}

// Command types shared by the HTTP and websocket surfaces.
const (
	cmdNext     = "next"
	cmdPrevious = "previous"
	cmdGoto     = "goto"
	cmdSection  = "section"
	cmdComplete = "complete"
	cmdKey      = "key"
)

var (
	errBadCommand     = errors.New("bad command")
	errUnknownSection = errors.New("unknown section")
)

// command is a navigation or milestone request. Index, ID and Key are read
// according to Type.
type command struct {
	Type  string `json:"type"`
	Index *int   `json:"index,omitempty"`
	ID    *int   `json:"id,omitempty"`
	Key   string `json:"key,omitempty"`
}

// apply runs cmd against the learner's controller, records it and pushes the
// new view to the learner's websocket clients.
func (s *Server) apply(ctx context.Context, learnerID, source string, cmd command) (ProgressView, error) {
	ctrl, release, err := s.registry.Get(ctx, learnerID)
	if err != nil {
		return ProgressView{}, err
	}
	defer release()

	var move progress.Move
	nav := &recorder.NavigationEvent{LearnerID: learnerID, Source: source}
	switch cmd.Type {
	case cmdNext:
		nav.Action = recorder.ActionNext
		move = progress.Move{Kind: progress.MoveNext}
	case cmdPrevious:
		nav.Action = recorder.ActionPrevious
		move = progress.Move{Kind: progress.MovePrevious}
	case cmdGoto:
		if cmd.Index == nil {
			return ProgressView{}, fmt.Errorf("%w: index is required", errBadCommand)
		}
		nav.Action = recorder.ActionGoto
		nav.Detail = fmt.Sprintf("%d", *cmd.Index)
		move = progress.Move{Kind: progress.MoveTo, Index: *cmd.Index}
	case cmdSection:
		if cmd.ID == nil {
			return ProgressView{}, fmt.Errorf("%w: id is required", errBadCommand)
		}
		nav.Action = recorder.ActionSection
		nav.Detail = fmt.Sprintf("%d", *cmd.ID)
		move = progress.Move{Kind: progress.MoveSection, Index: *cmd.ID}
	case cmdKey:
		if cmd.Key == "" {
			return ProgressView{}, fmt.Errorf("%w: key is required", errBadCommand)
		}
		nav.Action = recorder.ActionKey
		nav.Detail = cmd.Key
		move = progress.Move{Kind: progress.MoveKey, Key: cmd.Key}
	case cmdComplete:
		if cmd.ID == nil {
			return ProgressView{}, fmt.Errorf("%w: id is required", errBadCommand)
		}
		state, added := ctrl.MarkMilestone(ctx, *cmd.ID)
		if err := s.recorder.RecordMilestone(&recorder.MilestoneEvent{
			LearnerID: learnerID, MilestoneID: *cmd.ID, Slide: state.CurrentSlide, New: added,
		}); err != nil {
			s.log.Error("record milestone", "learner", learnerID, "error", err)
		}
		return s.publish(learnerID, state), nil
	default:
		return ProgressView{}, fmt.Errorf("%w: unknown type %q", errBadCommand, cmd.Type)
	}

	from, state, ok := ctrl.Navigate(ctx, move)
	if !ok {
		if cmd.Type == cmdSection {
			return ProgressView{}, fmt.Errorf("%w %d", errUnknownSection, *cmd.ID)
		}
		// Unhandled keys leave the state as it was.
		return s.view(learnerID, state), nil
	}

	nav.FromSlide = from
	nav.ToSlide = state.CurrentSlide
	if err := s.recorder.RecordNavigation(nav); err != nil {
		s.log.Error("record navigation", "learner", learnerID, "error", err)
	}
	return s.publish(learnerID, state), nil
}

func (s *Server) publish(learnerID string, state model.ProgressState) ProgressView {
	v := s.view(learnerID, state)
	s.hub.Broadcast(learnerID, outbound{Type: "progress", Progress: &v})
	return v
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

// writeJSON encodes v before writing any header, so an encoding failure can
// still be reported as a 500.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("encode response", "error", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		s.log.Debug("write response", "error", err)
	}
}
