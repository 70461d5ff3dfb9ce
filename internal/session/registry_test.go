package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"GreenDeck/internal/deck"
	"GreenDeck/internal/kv"
	"GreenDeck/internal/logger"
	"GreenDeck/internal/progress"
)

func newRegistry(t *testing.T) (*Registry, kv.Store) {
	t.Helper()
	d, err := deck.Default()
	if err != nil {
		t.Fatal(err)
	}
	store := kv.NewMemoryStore()
	return NewRegistry(store, d, logger.Nop()), store
}

// mustGet fetches a controller and releases it when the test ends.
func mustGet(t *testing.T, r *Registry, id string) (*progress.Controller, func()) {
	t.Helper()
	c, release, err := r.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(release)
	return c, release
}

func TestRegistry_IsolatesLearners(t *testing.T) {
	ctx := context.Background()
	r, store := newRegistry(t)

	alice, bob := NewLearnerID(), NewLearnerID()
	if alice == bob {
		t.Fatal("learner ids should be unique")
	}

	ca, _ := mustGet(t, r, alice)
	cb, _ := mustGet(t, r, bob)
	ca.GoToSlide(ctx, 20)
	cb.GoToSlide(ctx, 3)

	if again, _ := mustGet(t, r, alice); again != ca {
		t.Error("Get should return the cached controller")
	}
	if got := cb.State().CurrentSlide; got != 3 {
		t.Errorf("bob moved with alice: %d", got)
	}
	if v, ok, _ := store.Get(ctx, "learner/"+alice+"/greendeck.v1.currentSlide"); !ok || v != "20" {
		t.Errorf("alice's key not namespaced: v=%q ok=%v", v, ok)
	}
}

func TestRegistry_RejectsBadIDs(t *testing.T) {
	r, _ := newRegistry(t)
	id := NewLearnerID()
	for _, bad := range []string{"", "../etc", "not-a-uuid", strings.ToUpper(id), "{" + id + "}", "urn:uuid:" + id} {
		if _, _, err := r.Get(context.Background(), bad); err == nil {
			t.Errorf("id %q should be rejected", bad)
		}
	}
	if _, release, err := r.Get(context.Background(), DefaultLearner); err != nil {
		t.Errorf("default learner should be accepted: %v", err)
	} else {
		release()
	}
}

func TestNormalizeLearnerID(t *testing.T) {
	id := NewLearnerID()
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{id, id, true},
		{strings.ToUpper(id), id, true},
		{"{" + id + "}", id, true},
		{"urn:uuid:" + id, id, true},
		{DefaultLearner, DefaultLearner, true},
		{"DEFAULT", "", false},
		{"../etc", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeLearnerID(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("NormalizeLearnerID(%q) = %q %v, want %q %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
		if ok && !ValidLearnerID(got) {
			t.Errorf("normalized id %q should be valid", got)
		}
	}
}

func TestRegistry_SweepReloadsFromStore(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry(t)
	id := NewLearnerID()

	c, release := mustGet(t, r, id)
	c.GoToSlide(ctx, 30)
	c.CompleteMilestone(ctx, 2)
	release()

	if n := r.Sweep(time.Hour); n != 0 {
		t.Errorf("active learner should not be swept, dropped %d", n)
	}
	if n := r.Sweep(-time.Second); n != 1 {
		t.Fatalf("expected 1 dropped, got %d", n)
	}
	if r.Len() != 0 {
		t.Fatalf("registry should be empty, has %d", r.Len())
	}

	reloaded, _ := mustGet(t, r, id)
	if reloaded == c {
		t.Error("expected a fresh controller after sweep")
	}
	s := reloaded.State()
	if s.CurrentSlide != 30 || !s.HasMilestone(2) {
		t.Errorf("state lost across sweep: %+v", s)
	}
}

func TestRegistry_SweepSkipsHeldControllers(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry(t)
	id := NewLearnerID()

	c1, release1 := mustGet(t, r, id)
	if n := r.Sweep(-time.Second); n != 0 {
		t.Fatalf("held controller must not be swept, dropped %d", n)
	}
	c2, release2 := mustGet(t, r, id)
	if c1 != c2 {
		t.Fatal("a second Get while held should return the same controller")
	}

	c1.CompleteMilestone(ctx, 1)
	c2.GoToNext(ctx)
	release1()
	release2()
	release2() // releasing twice is harmless

	if n := r.Sweep(-time.Second); n != 1 {
		t.Fatalf("released controller should be swept, dropped %d", n)
	}
	reloaded, _ := mustGet(t, r, id)
	s := reloaded.State()
	if diff := cmp.Diff([]int{1}, s.CompletedMilestones); diff != "" {
		t.Errorf("milestone lost (-want +got):\n%s", diff)
	}
	if s.CurrentSlide != 1 {
		t.Errorf("slide = %d, want 1", s.CurrentSlide)
	}
}

func TestRegistry_GetKeepsReadersActive(t *testing.T) {
	r, _ := newRegistry(t)
	id := NewLearnerID()

	_, release := mustGet(t, r, id)
	release()
	time.Sleep(30 * time.Millisecond)

	// A read-only Get counts as activity.
	_, release = mustGet(t, r, id)
	release()
	if n := r.Sweep(20 * time.Millisecond); n != 0 {
		t.Errorf("recently read learner should not be swept, dropped %d", n)
	}
}

func TestRegistry_Snapshot(t *testing.T) {
	ctx := context.Background()
	r, _ := newRegistry(t)
	c, _ := mustGet(t, r, DefaultLearner)
	c.GoToSlide(ctx, 46)

	snaps := r.Snapshot()
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	if snaps[0].LearnerID != DefaultLearner || snaps[0].Derived.ProgressPercent != 100 {
		t.Errorf("unexpected snapshot: %+v", snaps[0])
	}
	if snaps[0].Derived.ActiveSectionID != 4 {
		t.Errorf("last slide should be in section 4, got %d", snaps[0].Derived.ActiveSectionID)
	}
}
