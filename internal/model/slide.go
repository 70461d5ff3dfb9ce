package model

// SlideType selects which renderer interprets a slide's content fields.
type SlideType string

const (
	SlideLearningGoalTitle SlideType = "learning_goal_title"
	SlideTwoColumn         SlideType = "two_column"
	SlideFrameworkOverview SlideType = "framework_overview"
	SlideMathDerivation    SlideType = "math_derivation"
	SlideGoalSummary       SlideType = "goal_summary"
	SlideInteractiveChart  SlideType = "interactive_chart"
)

// Known reports whether t is one of the renderer kinds the deck supports.
func (t SlideType) Known() bool {
	switch t {
	case SlideLearningGoalTitle, SlideTwoColumn, SlideFrameworkOverview,
		SlideMathDerivation, SlideGoalSummary, SlideInteractiveChart:
		return true
	}
	return false
}

// MathStep is one line of a derivation.
type MathStep struct {
	Number      int    `yaml:"number" json:"number"`
	Explanation string `yaml:"explanation" json:"explanation"`
	Equation    string `yaml:"equation" json:"equation"`
}

// Slide is a read-only slide descriptor. Only ID, Type and the goal fields are
// interpreted by the server; the rest is passed through to the renderer.
type Slide struct {
	ID            int       `yaml:"id" json:"id"`
	Type          SlideType `yaml:"type" json:"type"`
	GoalNumber    *int      `yaml:"goal_number,omitempty" json:"goalNumber,omitempty"`
	GoalReference *int      `yaml:"goal_reference,omitempty" json:"goalReference,omitempty"`
	ProgressStage int       `yaml:"progress_stage" json:"progressStage"`

	Title            string     `yaml:"title,omitempty" json:"title,omitempty"`
	Subtitle         string     `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`
	LeftHeader       string     `yaml:"left_header,omitempty" json:"leftHeader,omitempty"`
	LeftBullets      []string   `yaml:"left_bullets,omitempty" json:"leftBullets,omitempty"`
	RightHeader      string     `yaml:"right_header,omitempty" json:"rightHeader,omitempty"`
	RightBullets     []string   `yaml:"right_bullets,omitempty" json:"rightBullets,omitempty"`
	BottomNote       string     `yaml:"bottom_note,omitempty" json:"bottomNote,omitempty"`
	ChartType        string     `yaml:"chart_type,omitempty" json:"chartType,omitempty"`
	GoalStatement    string     `yaml:"goal_statement,omitempty" json:"goalStatement,omitempty"`
	GoalType         string     `yaml:"goal_type,omitempty" json:"goalType,omitempty"`
	NarrativeRole    string     `yaml:"narrative_role,omitempty" json:"narrativeRole,omitempty"`
	FrameworkName    string     `yaml:"framework_name,omitempty" json:"frameworkName,omitempty"`
	StartingEquation string     `yaml:"starting_equation,omitempty" json:"startingEquation,omitempty"`
	Assumptions      []string   `yaml:"assumptions,omitempty" json:"assumptions,omitempty"`
	Steps            []MathStep `yaml:"steps,omitempty" json:"steps,omitempty"`
	Questions        []string   `yaml:"questions,omitempty" json:"questions,omitempty"`
}
