package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"GreenDeck/internal/kv"
	"GreenDeck/internal/model"
)

// Persisted layout. Bump the version segment if the encoding ever changes.
const (
	KeyCurrentSlide        = "greendeck.v1.currentSlide"
	KeyCompletedMilestones = "greendeck.v1.completedMilestones"
)

// LoadState reads a learner's state from the store. Each field that is
// missing or malformed falls back to its default independently, and the
// returned issues describe what was discarded. A non-nil error means the store
// itself failed.
func LoadState(ctx context.Context, store kv.Store, totalSlides int) (*model.ProgressState, []string, error) {
	state := &model.ProgressState{CompletedMilestones: []int{}}
	var issues []string

	raw, ok, err := store.Get(ctx, KeyCurrentSlide)
	if err != nil {
		return nil, nil, fmt.Errorf("load current slide: %w", err)
	}
	if ok {
		idx, perr := strconv.Atoi(strings.TrimSpace(raw))
		if perr != nil {
			issues = append(issues, fmt.Sprintf("current slide %q is not an integer", raw))
		} else {
			clamped := clamp(idx, totalSlides)
			if clamped != idx {
				issues = append(issues, fmt.Sprintf("current slide %d clamped to %d", idx, clamped))
			}
			state.CurrentSlide = clamped
		}
	}

	raw, ok, err = store.Get(ctx, KeyCompletedMilestones)
	if err != nil {
		return nil, nil, fmt.Errorf("load milestones: %w", err)
	}
	if ok {
		var ids []int
		if jerr := json.Unmarshal([]byte(raw), &ids); jerr != nil {
			issues = append(issues, fmt.Sprintf("milestones %q are not a JSON integer array", raw))
		} else {
			state.CompletedMilestones = normalize(ids)
		}
	}

	return state, issues, nil
}

// SaveState writes both fields and stamps UpdatedAt.
func SaveState(ctx context.Context, store kv.Store, state *model.ProgressState) error {
	state.UpdatedAt = time.Now()
	ids := state.CompletedMilestones
	if ids == nil {
		ids = []int{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal milestones: %w", err)
	}
	if err := store.Set(ctx, KeyCurrentSlide, strconv.Itoa(state.CurrentSlide)); err != nil {
		return fmt.Errorf("save current slide: %w", err)
	}
	if err := store.Set(ctx, KeyCompletedMilestones, string(data)); err != nil {
		return fmt.Errorf("save milestones: %w", err)
	}
	return nil
}

// ClearState removes a learner's persisted state.
func ClearState(ctx context.Context, store kv.Store) error {
	if err := store.Delete(ctx, KeyCurrentSlide); err != nil {
		return fmt.Errorf("clear current slide: %w", err)
	}
	if err := store.Delete(ctx, KeyCompletedMilestones); err != nil {
		return fmt.Errorf("clear milestones: %w", err)
	}
	return nil
}

// clamp forces i into [0, total-1].
func clamp(i, total int) int {
	if i > total-1 {
		i = total - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// normalize sorts and de-duplicates milestone ids.
func normalize(ids []int) []int {
	out := make([]int, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}
