package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"GreenDeck/internal/deck"
	"GreenDeck/internal/kv"
	"GreenDeck/internal/logger"
	"GreenDeck/internal/model"
	"GreenDeck/internal/progress"
)

// DefaultLearner is used when the deck runs in single-learner mode.
const DefaultLearner = "default"

// NewLearnerID returns a fresh random learner id.
func NewLearnerID() string {
	return uuid.NewString()
}

// ValidLearnerID accepts the default id and UUIDs in canonical lowercase
// hyphenated form. Other spellings of a UUID must go through
// NormalizeLearnerID first so one learner maps to one set of keys.
func ValidLearnerID(id string) bool {
	if id == DefaultLearner {
		return true
	}
	u, err := uuid.Parse(id)
	return err == nil && u.String() == id
}

// NormalizeLearnerID returns the canonical form of id. The bool is false when
// id is neither the default learner nor a UUID in any accepted spelling.
func NormalizeLearnerID(id string) (string, bool) {
	if id == DefaultLearner {
		return id, true
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// Registry hands out one progress controller per learner. Each learner's keys
// live under "learner/<id>/" in the shared store.
type Registry struct {
	mu          sync.Mutex
	store       kv.Store
	deck        *deck.Deck
	log         *logger.Logger
	controllers map[string]*entry
}

// entry is a loaded controller and the number of callers holding it.
type entry struct {
	ctrl *progress.Controller
	refs int
}

func NewRegistry(store kv.Store, d *deck.Deck, log *logger.Logger) *Registry {
	return &Registry{
		store:       store,
		deck:        d,
		log:         log.With("component", "Registry"),
		controllers: make(map[string]*entry),
	}
}

// Get returns the learner's controller, loading it from the store on first
// use, and a release func the caller must invoke when done with it. A held
// controller is never swept, so two controllers for one learner cannot
// coexist.
func (r *Registry) Get(ctx context.Context, learnerID string) (*progress.Controller, func(), error) {
	if !ValidLearnerID(learnerID) {
		return nil, nil, fmt.Errorf("invalid learner id %q", learnerID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.controllers[learnerID]
	if !ok {
		c, err := progress.New(ctx, kv.Prefixed(r.store, "learner/"+learnerID+"/"), r.deck, r.log.With("learner", learnerID))
		if err != nil {
			return nil, nil, fmt.Errorf("load learner %s: %w", learnerID, err)
		}
		e = &entry{ctrl: c}
		r.controllers[learnerID] = e
		r.log.Debug("learner loaded", "learner", learnerID)
	}
	e.refs++
	e.ctrl.Touch()

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			e.refs--
			r.mu.Unlock()
			e.ctrl.Touch()
		})
	}
	return e.ctrl, release, nil
}

// Len is the number of controllers currently held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// Sweep drops controllers that nobody holds and that have been idle for
// longer than idle. Their state stays in the store and is reloaded by the
// next Get. Returns the number dropped.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for id, e := range r.controllers {
		if e.refs > 0 {
			continue
		}
		if e.ctrl.LastActive().Before(cutoff) {
			delete(r.controllers, id)
			dropped++
		}
	}
	if dropped > 0 {
		r.log.Info("idle learners swept", "dropped", dropped, "remaining", len(r.controllers))
	}
	return dropped
}

// LearnerSnapshot is one learner's state at a point in time.
type LearnerSnapshot struct {
	LearnerID string
	State     model.ProgressState
	Derived   model.DerivedState
}

// Snapshot returns the state of every loaded learner, ordered by id.
func (r *Registry) Snapshot() []LearnerSnapshot {
	r.mu.Lock()
	ids := make([]string, 0, len(r.controllers))
	ctrls := make(map[string]*progress.Controller, len(r.controllers))
	for id, e := range r.controllers {
		ids = append(ids, id)
		ctrls[id] = e.ctrl
	}
	r.mu.Unlock()

	sort.Strings(ids)
	out := make([]LearnerSnapshot, 0, len(ids))
	for _, id := range ids {
		state := ctrls[id].State()
		out = append(out, LearnerSnapshot{
			LearnerID: id,
			State:     state,
			Derived:   progress.Derive(r.deck, state),
		})
	}
	return out
}
