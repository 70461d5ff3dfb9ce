package model

import "time"

// Section is a contiguous, inclusive range of slide indices forming one
// learning unit. MilestoneID is nil for units without a completion checklist.
type Section struct {
	ID          int    `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Subtitle    string `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`
	Kind        string `yaml:"kind" json:"kind"`
	First       int    `yaml:"first" json:"first"`
	Last        int    `yaml:"last" json:"last"`
	MilestoneID *int   `yaml:"milestone_id,omitempty" json:"milestoneId,omitempty"`
}

// Contains reports whether slide index i falls inside the section.
func (s Section) Contains(i int) bool {
	return i >= s.First && i <= s.Last
}

// Len is the number of slides in the section.
func (s Section) Len() int {
	return s.Last - s.First + 1
}

// SectionStatus is the sidebar state of a section.
type SectionStatus string

const (
	StatusCompleted SectionStatus = "completed"
	StatusCurrent   SectionStatus = "current"
	StatusUpcoming  SectionStatus = "upcoming"
)

// ProgressState is what gets persisted for a learner.
type ProgressState struct {
	CurrentSlide        int       `json:"currentSlide"`
	CompletedMilestones []int     `json:"completedMilestones"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// HasMilestone reports whether id has been completed.
func (s ProgressState) HasMilestone(id int) bool {
	for _, m := range s.CompletedMilestones {
		if m == id {
			return true
		}
	}
	return false
}

// SectionProgress is the derived view of one section.
type SectionProgress struct {
	SectionID int           `json:"sectionId"`
	Status    SectionStatus `json:"status"`
	Percent   float64       `json:"percent"`
}

// DerivedState is computed on read and never stored.
type DerivedState struct {
	ProgressPercent float64               `json:"progressPercent"`
	ActiveSectionID int                   `json:"activeSectionId"`
	SectionStatuses map[int]SectionStatus `json:"sectionStatuses"`
	Sections        []SectionProgress     `json:"sections"`
}
