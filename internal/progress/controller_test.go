package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"GreenDeck/internal/deck"
	"GreenDeck/internal/kv"
	"GreenDeck/internal/logger"
	"GreenDeck/internal/model"
)

func intPtr(v int) *int { return &v }

// testDeck builds an n-slide deck split into three sections: [0,a), [a,b), [b,n).
// The second and third sections carry milestones 1 and 2.
func testDeck(t *testing.T, n, a, b int) *deck.Deck {
	t.Helper()
	d := &deck.Deck{
		Sections: []model.Section{
			{ID: 0, Title: "Intro", First: 0, Last: a - 1},
			{ID: 1, Title: "Part 1", First: a, Last: b - 1, MilestoneID: intPtr(1)},
			{ID: 2, Title: "Part 2", First: b, Last: n - 1, MilestoneID: intPtr(2)},
		},
	}
	for i := 0; i < n; i++ {
		d.Slides = append(d.Slides, model.Slide{ID: i, Type: model.SlideTwoColumn})
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("test deck invalid: %v", err)
	}
	return d
}

func newController(t *testing.T, store kv.Store, d *deck.Deck) *Controller {
	t.Helper()
	c, err := New(context.Background(), store, d, logger.Nop())
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return c
}

func TestNavigation_ThirtySlideScenario(t *testing.T) {
	ctx := context.Background()
	c := newController(t, kv.NewMemoryStore(), testDeck(t, 30, 5, 15))

	if got := c.State().CurrentSlide; got != 0 {
		t.Fatalf("fresh controller should start at 0, got %d", got)
	}
	for i := 0; i < 29; i++ {
		c.GoToNext(ctx)
	}
	if got := c.State().CurrentSlide; got != 29 {
		t.Fatalf("after 29 nexts expected 29, got %d", got)
	}
	if got := c.GoToNext(ctx).CurrentSlide; got != 29 {
		t.Errorf("next on the last slide should stay at 29, got %d", got)
	}
}

func TestNavigation_ClampingInvariant(t *testing.T) {
	ctx := context.Background()
	const n = 7
	c := newController(t, kv.NewMemoryStore(), testDeck(t, n, 2, 4))

	if got := c.GoToPrevious(ctx).CurrentSlide; got != 0 {
		t.Errorf("previous on the first slide should stay at 0, got %d", got)
	}

	// A fixed pseudo-random walk that repeatedly hits both ends.
	moves := "RRRRRRRRRRLLLLLLLLLLLLRLRLRRRRRRRRRLLRRRRLLLLLLLLLLLLLLRRR"
	for i, m := range moves {
		var s model.ProgressState
		if m == 'R' {
			s = c.GoToNext(ctx)
		} else {
			s = c.GoToPrevious(ctx)
		}
		if s.CurrentSlide < 0 || s.CurrentSlide > n-1 {
			t.Fatalf("step %d: index %d out of range", i, s.CurrentSlide)
		}
	}
}

func TestGoToSlide_Clamps(t *testing.T) {
	ctx := context.Background()
	c := newController(t, kv.NewMemoryStore(), testDeck(t, 10, 3, 6))
	tests := []struct {
		in, want int
	}{
		{4, 4}, {0, 0}, {9, 9}, {10, 9}, {1000, 9}, {-1, 0}, {-50, 0},
	}
	for _, tt := range tests {
		if got := c.GoToSlide(ctx, tt.in).CurrentSlide; got != tt.want {
			t.Errorf("GoToSlide(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestGoToSection(t *testing.T) {
	ctx := context.Background()
	c := newController(t, kv.NewMemoryStore(), testDeck(t, 10, 3, 6))

	s, ok := c.GoToSection(ctx, 2)
	if !ok || s.CurrentSlide != 6 {
		t.Errorf("section 2 should jump to 6, got %d ok=%v", s.CurrentSlide, ok)
	}
	s, ok = c.GoToSection(ctx, 42)
	if ok || s.CurrentSlide != 6 {
		t.Errorf("unknown section should be a no-op, got %d ok=%v", s.CurrentSlide, ok)
	}
}

func TestCompleteMilestone_Idempotent(t *testing.T) {
	ctx := context.Background()
	c := newController(t, kv.NewMemoryStore(), testDeck(t, 10, 3, 6))
	c.GoToSlide(ctx, 4)

	once := c.CompleteMilestone(ctx, 1)
	twice := c.CompleteMilestone(ctx, 1)
	if diff := cmp.Diff(once.CompletedMilestones, twice.CompletedMilestones); diff != "" {
		t.Errorf("second completion changed the set (-once +twice):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, twice.CompletedMilestones); diff != "" {
		t.Errorf("unexpected milestones (-want +got):\n%s", diff)
	}
	if twice.CurrentSlide != 4 {
		t.Errorf("completing a milestone must not move the slide, got %d", twice.CurrentSlide)
	}

	c.CompleteMilestone(ctx, 7)
	c.CompleteMilestone(ctx, 2)
	if diff := cmp.Diff([]int{1, 2, 7}, c.State().CompletedMilestones); diff != "" {
		t.Errorf("milestones should be sorted and unique (-want +got):\n%s", diff)
	}
}

func TestHandleKey(t *testing.T) {
	ctx := context.Background()
	c := newController(t, kv.NewMemoryStore(), testDeck(t, 10, 3, 6))
	c.GoToSlide(ctx, 5)

	tests := []struct {
		key         string
		wantSlide   int
		wantHandled bool
	}{
		{ArrowRight, 6, true},
		{ArrowRight, 7, true},
		{ArrowLeft, 6, true},
		{"ArrowUp", 6, false},
		{"Enter", 6, false},
		{"", 6, false},
	}
	for _, tt := range tests {
		s, handled := c.HandleKey(ctx, tt.key)
		if handled != tt.wantHandled || s.CurrentSlide != tt.wantSlide {
			t.Errorf("key %q: slide=%d handled=%v, want %d %v", tt.key, s.CurrentSlide, handled, tt.wantSlide, tt.wantHandled)
		}
	}
}

func TestNavigate_ReportsStartingSlide(t *testing.T) {
	ctx := context.Background()
	c := newController(t, kv.NewMemoryStore(), testDeck(t, 10, 3, 6))
	c.GoToSlide(ctx, 4)

	tests := []struct {
		name     string
		move     Move
		wantFrom int
		wantTo   int
		wantOK   bool
	}{
		{"next", Move{Kind: MoveNext}, 4, 5, true},
		{"previous", Move{Kind: MovePrevious}, 5, 4, true},
		{"goto clamps", Move{Kind: MoveTo, Index: 99}, 4, 9, true},
		{"section", Move{Kind: MoveSection, Index: 1}, 9, 3, true},
		{"unknown section", Move{Kind: MoveSection, Index: 8}, 3, 3, false},
		{"arrow right", Move{Kind: MoveKey, Key: ArrowRight}, 3, 4, true},
		{"unhandled key", Move{Kind: MoveKey, Key: "Tab"}, 4, 4, false},
	}
	for _, tt := range tests {
		from, s, ok := c.Navigate(ctx, tt.move)
		if from != tt.wantFrom || s.CurrentSlide != tt.wantTo || ok != tt.wantOK {
			t.Errorf("%s: from=%d to=%d ok=%v, want %d %d %v", tt.name, from, s.CurrentSlide, ok, tt.wantFrom, tt.wantTo, tt.wantOK)
		}
	}
}

func TestMarkMilestone_ReportsAdded(t *testing.T) {
	ctx := context.Background()
	c := newController(t, kv.NewMemoryStore(), testDeck(t, 10, 3, 6))

	if _, added := c.MarkMilestone(ctx, 2); !added {
		t.Error("first completion should report added")
	}
	s, added := c.MarkMilestone(ctx, 2)
	if added {
		t.Error("second completion should not report added")
	}
	if diff := cmp.Diff([]int{2}, s.CompletedMilestones); diff != "" {
		t.Errorf("unexpected milestones (-want +got):\n%s", diff)
	}
}

func TestPersistence_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	d := testDeck(t, 12, 4, 8)

	c := newController(t, store, d)
	c.GoToNext(ctx)
	c.GoToNext(ctx)
	c.GoToSlide(ctx, 9)
	c.GoToPrevious(ctx)
	c.CompleteMilestone(ctx, 2)
	c.CompleteMilestone(ctx, 1)
	before := c.State()

	fresh := newController(t, store, d)
	after := fresh.State()
	opt := cmpopts.IgnoreFields(model.ProgressState{}, "UpdatedAt")
	if diff := cmp.Diff(before, after, opt); diff != "" {
		t.Errorf("state changed across reload (-before +after):\n%s", diff)
	}

	raw, _, _ := store.Get(ctx, KeyCurrentSlide)
	if raw != "8" {
		t.Errorf("current slide should be stored as base-10 string, got %q", raw)
	}
	raw, _, _ = store.Get(ctx, KeyCompletedMilestones)
	if raw != "[1,2]" {
		t.Errorf("milestones should be stored as JSON array, got %q", raw)
	}
}

func TestLoad_RepairsBadState(t *testing.T) {
	ctx := context.Background()
	d := testDeck(t, 10, 3, 6)
	tests := []struct {
		name       string
		slide      string
		milestones string
		want       model.ProgressState
	}{
		{"absent", "", "", model.ProgressState{CurrentSlide: 0, CompletedMilestones: []int{}}},
		{"deck shrank", "25", "[1]", model.ProgressState{CurrentSlide: 9, CompletedMilestones: []int{1}}},
		{"negative", "-3", "[]", model.ProgressState{CurrentSlide: 0, CompletedMilestones: []int{}}},
		{"garbage slide", "five", "[2]", model.ProgressState{CurrentSlide: 0, CompletedMilestones: []int{2}}},
		{"garbage milestones", "4", "{oops", model.ProgressState{CurrentSlide: 4, CompletedMilestones: []int{}}},
		{"duplicate milestones", " 3 ", "[2,1,2]", model.ProgressState{CurrentSlide: 3, CompletedMilestones: []int{1, 2}}},
		{"wrong json type", "3", `["a"]`, model.ProgressState{CurrentSlide: 3, CompletedMilestones: []int{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := kv.NewMemoryStore()
			if tt.slide != "" {
				store.Set(ctx, KeyCurrentSlide, tt.slide)
			}
			if tt.milestones != "" {
				store.Set(ctx, KeyCompletedMilestones, tt.milestones)
			}
			got := newController(t, store, d).State()
			opt := cmpopts.IgnoreFields(model.ProgressState{}, "UpdatedAt")
			if diff := cmp.Diff(tt.want, got, opt); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

// failingStore reads fine but refuses writes.
type failingStore struct {
	kv.Store
	getErr error
}

func (f failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.Store.Get(ctx, key)
}

func (f failingStore) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestSaveFailure_KeepsInMemoryState(t *testing.T) {
	ctx := context.Background()
	c := newController(t, failingStore{Store: kv.NewMemoryStore()}, testDeck(t, 10, 3, 6))
	if got := c.GoToNext(ctx).CurrentSlide; got != 1 {
		t.Errorf("navigation should proceed despite save failure, got %d", got)
	}
	if got := c.CompleteMilestone(ctx, 1).CompletedMilestones; len(got) != 1 {
		t.Errorf("milestone should be kept in memory, got %v", got)
	}
}

func TestNew_StoreFailure(t *testing.T) {
	store := failingStore{Store: kv.NewMemoryStore(), getErr: errors.New("connection refused")}
	if _, err := New(context.Background(), store, testDeck(t, 10, 3, 6), logger.Nop()); err == nil {
		t.Error("expected error when the store cannot be read")
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	d := testDeck(t, 10, 3, 6)
	c := newController(t, store, d)
	c.GoToSlide(ctx, 7)
	c.CompleteMilestone(ctx, 1)

	s, err := c.Reset(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.CurrentSlide != 0 || len(s.CompletedMilestones) != 0 {
		t.Errorf("reset state: %+v", s)
	}
	if _, ok, _ := store.Get(ctx, KeyCurrentSlide); ok {
		t.Error("reset should clear the persisted record")
	}
}

func TestDerive(t *testing.T) {
	d := testDeck(t, 10, 3, 6)
	tests := []struct {
		name        string
		state       model.ProgressState
		wantPercent float64
		wantActive  int
		wantStatus  map[int]model.SectionStatus
		wantSecPct  []float64
	}{
		{
			name:        "start",
			state:       model.ProgressState{CurrentSlide: 0},
			wantPercent: 10,
			wantActive:  0,
			wantStatus:  map[int]model.SectionStatus{0: model.StatusCurrent, 1: model.StatusUpcoming, 2: model.StatusUpcoming},
			wantSecPct:  []float64{100.0 / 3, 0, 0},
		},
		{
			name:        "middle of part 1",
			state:       model.ProgressState{CurrentSlide: 4},
			wantPercent: 50,
			wantActive:  1,
			wantStatus:  map[int]model.SectionStatus{0: model.StatusUpcoming, 1: model.StatusCurrent, 2: model.StatusUpcoming},
			wantSecPct:  []float64{0, 200.0 / 3, 0},
		},
		{
			name:        "completed wins over current",
			state:       model.ProgressState{CurrentSlide: 9, CompletedMilestones: []int{1, 2}},
			wantPercent: 100,
			wantActive:  2,
			wantStatus:  map[int]model.SectionStatus{0: model.StatusUpcoming, 1: model.StatusCompleted, 2: model.StatusCompleted},
			wantSecPct:  []float64{0, 100, 100},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive(d, tt.state)
			if !approx(got.ProgressPercent, tt.wantPercent) {
				t.Errorf("percent %v, want %v", got.ProgressPercent, tt.wantPercent)
			}
			if got.ActiveSectionID != tt.wantActive {
				t.Errorf("active %d, want %d", got.ActiveSectionID, tt.wantActive)
			}
			if diff := cmp.Diff(tt.wantStatus, got.SectionStatuses); diff != "" {
				t.Errorf("statuses (-want +got):\n%s", diff)
			}
			for i, sp := range got.Sections {
				if !approx(sp.Percent, tt.wantSecPct[i]) {
					t.Errorf("section %d percent %v, want %v", i, sp.Percent, tt.wantSecPct[i])
				}
			}
		})
	}
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
