package recorder

import "GreenDeck/internal/model"

// Navigation actions.
const (
	ActionNext     = "NEXT"
	ActionPrevious = "PREVIOUS"
	ActionGoto     = "GOTO"
	ActionSection  = "SECTION"
	ActionKey      = "KEY"
)

// NavigationEvent records one navigation command and where it landed.
type NavigationEvent struct {
	LearnerID string
	Action    string
	Source    string // "http", "ws"
	FromSlide int
	ToSlide   int
	Detail    string // key name, requested index or section id
}

// MilestoneEvent records a milestone completion request.
type MilestoneEvent struct {
	LearnerID   string
	MilestoneID int
	Slide       int
	New         bool // false when the milestone was already completed
}

// CalculationEvent records a bond comparison served to a learner.
type CalculationEvent struct {
	LearnerID  string
	Comparison *model.BondComparison
}

// Snapshot records a learner's progress at a scheduled point in time.
type Snapshot struct {
	LearnerID       string
	CurrentSlide    int
	ProgressPercent float64
	ActiveSectionID int
	Milestones      []int
}

// Recorder persists learner activity for later analysis.
type Recorder interface {
	RecordNavigation(evt *NavigationEvent) error
	RecordMilestone(evt *MilestoneEvent) error
	RecordCalculation(evt *CalculationEvent) error
	RecordSnapshot(snap *Snapshot) error
	Close() error
}
