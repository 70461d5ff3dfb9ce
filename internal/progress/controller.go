package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"GreenDeck/internal/deck"
	"GreenDeck/internal/kv"
	"GreenDeck/internal/logger"
	"GreenDeck/internal/model"
)

// Keyboard signals recognised by HandleKey.
const (
	ArrowLeft  = "ArrowLeft"
	ArrowRight = "ArrowRight"
)

// Controller owns one learner's navigation state. Every mutation is persisted
// through the store before the call returns. Out-of-range requests are
// clamped, never rejected.
type Controller struct {
	mu         sync.Mutex
	deck       *deck.Deck
	store      kv.Store
	state      *model.ProgressState
	log        *logger.Logger
	lastActive time.Time
}

// New loads the learner's state from store. Malformed or out-of-range values
// are repaired silently (logged at warn). Only a failing store is an error.
func New(ctx context.Context, store kv.Store, d *deck.Deck, log *logger.Logger) (*Controller, error) {
	state, issues, err := LoadState(ctx, store, d.Len())
	if err != nil {
		return nil, err
	}
	for _, issue := range issues {
		log.Warn("discarding persisted progress", "issue", issue)
	}
	return &Controller{
		deck:       d,
		store:      store,
		state:      state,
		log:        log,
		lastActive: time.Now(),
	}, nil
}

// State returns a copy of the current state.
func (c *Controller) State() model.ProgressState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Deck returns the deck the controller navigates.
func (c *Controller) Deck() *deck.Deck {
	return c.deck
}

// LastActive is the time of the most recent call that touched the state.
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Touch marks the controller as in use without changing its state.
func (c *Controller) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastActive = time.Now()
}

// MoveKind selects what Navigate does.
type MoveKind int

const (
	MoveNext MoveKind = iota
	MovePrevious
	MoveTo      // Index is the target slide
	MoveSection // Index is the section id
	MoveKey     // Key is ArrowLeft or ArrowRight
)

// Move is one navigation request.
type Move struct {
	Kind  MoveKind
	Index int
	Key   string
}

// Navigate applies m under the lock and returns the slide it started from
// together with the new state. ok is false, and nothing changes, for an
// unknown section or an unhandled key.
func (c *Controller) Navigate(ctx context.Context, m Move) (from int, state model.ProgressState, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	from = c.state.CurrentSlide

	target := from
	switch m.Kind {
	case MoveNext:
		target = from + 1
	case MovePrevious:
		target = from - 1
	case MoveTo:
		target = m.Index
	case MoveSection:
		sec, found := c.deck.SectionByID(m.Index)
		if !found {
			c.lastActive = time.Now()
			return from, c.snapshot(), false
		}
		target = sec.First
	case MoveKey:
		switch m.Key {
		case ArrowLeft:
			target = from - 1
		case ArrowRight:
			target = from + 1
		default:
			c.lastActive = time.Now()
			return from, c.snapshot(), false
		}
	default:
		return from, c.snapshot(), false
	}
	return from, c.moveTo(ctx, target), true
}

// GoToNext advances one slide, staying put on the last one.
func (c *Controller) GoToNext(ctx context.Context) model.ProgressState {
	_, s, _ := c.Navigate(ctx, Move{Kind: MoveNext})
	return s
}

// GoToPrevious steps back one slide, staying put on the first one.
func (c *Controller) GoToPrevious(ctx context.Context) model.ProgressState {
	_, s, _ := c.Navigate(ctx, Move{Kind: MovePrevious})
	return s
}

// GoToSlide jumps to index i clamped into the deck.
func (c *Controller) GoToSlide(ctx context.Context, i int) model.ProgressState {
	_, s, _ := c.Navigate(ctx, Move{Kind: MoveTo, Index: i})
	return s
}

// GoToSection jumps to the first slide of section id. The bool is false, and
// nothing changes, when no such section exists.
func (c *Controller) GoToSection(ctx context.Context, id int) (model.ProgressState, bool) {
	_, s, ok := c.Navigate(ctx, Move{Kind: MoveSection, Index: id})
	return s, ok
}

// HandleKey maps ArrowLeft to GoToPrevious and ArrowRight to GoToNext. Any
// other key is ignored and reported as unhandled.
func (c *Controller) HandleKey(ctx context.Context, key string) (model.ProgressState, bool) {
	_, s, ok := c.Navigate(ctx, Move{Kind: MoveKey, Key: key})
	return s, ok
}

// CompleteMilestone records id as completed. Completing it again is a no-op.
func (c *Controller) CompleteMilestone(ctx context.Context, id int) model.ProgressState {
	s, _ := c.MarkMilestone(ctx, id)
	return s
}

// MarkMilestone is CompleteMilestone that also reports whether id was newly
// added by this call.
func (c *Controller) MarkMilestone(ctx context.Context, id int) (model.ProgressState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	added := !c.state.HasMilestone(id)
	if added {
		c.state.CompletedMilestones = normalize(append(c.state.CompletedMilestones, id))
		c.log.Info("milestone completed", "milestone", id)
	}
	c.persist(ctx)
	return c.snapshot(), added
}

// Reset returns the learner to the first slide with no milestones and clears
// the persisted record.
func (c *Controller) Reset(ctx context.Context) (model.ProgressState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ClearState(ctx, c.store); err != nil {
		return c.snapshot(), fmt.Errorf("reset progress: %w", err)
	}
	c.state = &model.ProgressState{CompletedMilestones: []int{}}
	c.lastActive = time.Now()
	c.log.Info("progress reset")
	return c.snapshot(), nil
}

// Derived computes the display state from the current state.
func (c *Controller) Derived() model.DerivedState {
	return Derive(c.deck, c.State())
}

func (c *Controller) moveTo(ctx context.Context, i int) model.ProgressState {
	c.state.CurrentSlide = clamp(i, c.deck.Len())
	c.persist(ctx)
	return c.snapshot()
}

// persist saves the state. A failed write is logged and the in-memory state
// is kept. Must be called with the lock held.
func (c *Controller) persist(ctx context.Context) {
	c.lastActive = time.Now()
	if err := SaveState(ctx, c.store, c.state); err != nil {
		c.log.Error("failed to save progress", "error", err)
	}
}

// snapshot copies the state. Must be called with the lock held.
func (c *Controller) snapshot() model.ProgressState {
	s := *c.state
	s.CompletedMilestones = append([]int(nil), c.state.CompletedMilestones...)
	if s.CompletedMilestones == nil {
		s.CompletedMilestones = []int{}
	}
	return s
}

// Derive computes progress percent, the active section and every section's
// status for a state on deck d.
func Derive(d *deck.Deck, s model.ProgressState) model.DerivedState {
	total := d.Len()
	out := model.DerivedState{
		ProgressPercent: float64(s.CurrentSlide+1) / float64(total) * 100,
		ActiveSectionID: -1,
		SectionStatuses: make(map[int]model.SectionStatus, len(d.Sections)),
		Sections:        make([]model.SectionProgress, 0, len(d.Sections)),
	}
	if active, ok := d.SectionAt(s.CurrentSlide); ok {
		out.ActiveSectionID = active.ID
	}

	for _, sec := range d.Sections {
		sp := model.SectionProgress{SectionID: sec.ID, Status: model.StatusUpcoming}
		switch {
		case sec.MilestoneID != nil && s.HasMilestone(*sec.MilestoneID):
			sp.Status = model.StatusCompleted
			sp.Percent = 100
		case sec.ID == out.ActiveSectionID:
			sp.Status = model.StatusCurrent
			sp.Percent = float64(s.CurrentSlide-sec.First+1) / float64(sec.Len()) * 100
		}
		out.SectionStatuses[sec.ID] = sp.Status
		out.Sections = append(out.Sections, sp)
	}
	return out
}
