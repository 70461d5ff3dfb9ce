package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"GreenDeck/internal/calculator"
	"GreenDeck/internal/model"
	"GreenDeck/internal/recorder"
	"GreenDeck/internal/session"
)

type learnerKey struct{}

// learnerFrom returns the learner id resolved by resolveLearner.
func learnerFrom(ctx context.Context) string {
	if id, ok := ctx.Value(learnerKey{}).(string); ok {
		return id
	}
	return session.DefaultLearner
}

// resolveLearner picks the learner id from the X-Learner-ID header, then the
// learner cookie, and otherwise issues a new id as a cookie. A malformed
// header is rejected; a malformed cookie is replaced.
func (s *Server) resolveLearner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := session.DefaultLearner
		if !s.opts.SingleUser {
			if h := r.Header.Get(LearnerHeader); h != "" {
				norm, ok := session.NormalizeLearnerID(h)
				if !ok {
					http.Error(w, "invalid learner id", http.StatusBadRequest)
					return
				}
				id = norm
			} else if norm, ok := cookieLearner(r); ok {
				id = norm
			} else {
				id = session.NewLearnerID()
				http.SetCookie(w, &http.Cookie{
					Name:     LearnerCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   365 * 24 * 60 * 60,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), learnerKey{}, id)))
	})
}

func cookieLearner(r *http.Request) (string, bool) {
	c, err := r.Cookie(LearnerCookie)
	if err != nil {
		return "", false
	}
	return session.NormalizeLearnerID(c.Value)
}

// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "slides": s.deck.Len()})
}

// GET /api/deck
func (s *Server) handleDeck(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deck)
}

// GET /api/slides/{index}
func (s *Server) handleSlide(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.Error(w, "invalid slide index", http.StatusBadRequest)
		return
	}
	slide, ok := s.deck.Slide(i)
	if !ok {
		http.Error(w, "slide not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, slide)
}

// GET /api/progress
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	learnerID := learnerFrom(r.Context())
	ctrl, release, err := s.registry.Get(r.Context(), learnerID)
	if err != nil {
		s.log.Error("load learner", "learner", learnerID, "error", err)
		http.Error(w, "failed to load progress", http.StatusInternalServerError)
		return
	}
	defer release()
	s.writeJSON(w, http.StatusOK, s.view(learnerID, ctrl.State()))
}

// handleCommand serves the POST /api/progress/* endpoints that map directly
// onto a command. Bodies are optional for next and previous.
func (s *Server) handleCommand(cmdType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cmd command
		if cmdType != cmdNext && cmdType != cmdPrevious {
			if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
				http.Error(w, "Invalid JSON", http.StatusBadRequest)
				return
			}
		}
		cmd.Type = cmdType
		s.serveCommand(w, r, cmd)
	}
}

// POST /api/progress/sections/{id}
func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid section id", http.StatusBadRequest)
		return
	}
	s.serveCommand(w, r, command{Type: cmdSection, ID: &id})
}

func (s *Server) serveCommand(w http.ResponseWriter, r *http.Request, cmd command) {
	learnerID := learnerFrom(r.Context())
	v, err := s.apply(r.Context(), learnerID, "http", cmd)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, v)
	case errors.Is(err, errBadCommand):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, errUnknownSection):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.log.Error("apply command", "learner", learnerID, "type", cmd.Type, "error", err)
		http.Error(w, "failed to update progress", http.StatusInternalServerError)
	}
}

// POST /api/progress/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	learnerID := learnerFrom(r.Context())
	ctrl, release, err := s.registry.Get(r.Context(), learnerID)
	if err != nil {
		s.log.Error("load learner", "learner", learnerID, "error", err)
		http.Error(w, "failed to load progress", http.StatusInternalServerError)
		return
	}
	defer release()
	state, err := ctrl.Reset(r.Context())
	if err != nil {
		s.log.Error("reset progress", "learner", learnerID, "error", err)
		http.Error(w, "failed to reset progress", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, s.publish(learnerID, state))
}

// GET /api/bond?discountRate=&greenium=&maturity=&coupon=&faceValue=
// Missing parameters take the calculator defaults; non-numeric or non-finite
// values are rejected; out-of-range values are clamped to the slider ranges.
func (s *Server) handleBond(w http.ResponseWriter, r *http.Request) {
	p := calculator.DefaultParameters()
	q := r.URL.Query()

	floats := []struct {
		name string
		dst  *float64
	}{
		{"discountRate", &p.DiscountRate},
		{"greenium", &p.GreeniumBps},
		{"coupon", &p.CouponRate},
		{"faceValue", &p.FaceValue},
	}
	for _, f := range floats {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			http.Error(w, "invalid "+f.name, http.StatusBadRequest)
			return
		}
		*f.dst = n
	}
	if v := q.Get("maturity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid maturity", http.StatusBadRequest)
			return
		}
		p.MaturityYears = n
	}

	cmp := calculator.Compare(calculator.Clamp(p))
	s.recordCalculation(learnerFrom(r.Context()), &cmp)
	s.writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) recordCalculation(learnerID string, cmp *model.BondComparison) {
	if err := s.recorder.RecordCalculation(&recorder.CalculationEvent{LearnerID: learnerID, Comparison: cmp}); err != nil {
		s.log.Error("record calculation", "learner", learnerID, "error", err)
	}
}
