package deck

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"GreenDeck/internal/model"
)

//go:embed week1.yaml
var week1YAML []byte

// Deck is the immutable slide list plus its section table.
type Deck struct {
	Title    string          `yaml:"title" json:"title"`
	Edition  string          `yaml:"edition" json:"edition"`
	Sections []model.Section `yaml:"sections" json:"sections"`
	Slides   []model.Slide   `yaml:"slides" json:"slides"`
}

// Default returns the built-in Week 1 deck.
func Default() (*Deck, error) {
	return Parse(week1YAML)
}

// Load reads and validates a deck from a YAML file.
func Load(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deck: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML deck.
func Parse(data []byte) (*Deck, error) {
	var d Deck
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse deck: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks slide ids are dense and in order, every slide type is known,
// and the sections partition [0, Len()-1] in order without gaps or overlap.
func (d *Deck) Validate() error {
	if len(d.Slides) == 0 {
		return fmt.Errorf("deck has no slides")
	}
	for i, s := range d.Slides {
		if s.ID != i {
			return fmt.Errorf("slide at position %d has id %d", i, s.ID)
		}
		if !s.Type.Known() {
			return fmt.Errorf("slide %d: unknown type %q", i, s.Type)
		}
	}

	if len(d.Sections) == 0 {
		return fmt.Errorf("deck has no sections")
	}
	next := 0
	milestones := make(map[int]int)
	ids := make(map[int]bool)
	for _, sec := range d.Sections {
		if ids[sec.ID] {
			return fmt.Errorf("duplicate section id %d", sec.ID)
		}
		ids[sec.ID] = true
		if sec.First > sec.Last {
			return fmt.Errorf("section %d: first %d > last %d", sec.ID, sec.First, sec.Last)
		}
		if sec.First != next {
			return fmt.Errorf("section %d starts at %d, expected %d", sec.ID, sec.First, next)
		}
		next = sec.Last + 1
		if sec.MilestoneID != nil {
			if other, dup := milestones[*sec.MilestoneID]; dup {
				return fmt.Errorf("milestone %d used by sections %d and %d", *sec.MilestoneID, other, sec.ID)
			}
			milestones[*sec.MilestoneID] = sec.ID
		}
	}
	if next != len(d.Slides) {
		return fmt.Errorf("sections cover %d slides, deck has %d", next, len(d.Slides))
	}
	return nil
}

// Len is the number of slides.
func (d *Deck) Len() int {
	return len(d.Slides)
}

// Slide returns the descriptor at index i.
func (d *Deck) Slide(i int) (model.Slide, bool) {
	if i < 0 || i >= len(d.Slides) {
		return model.Slide{}, false
	}
	return d.Slides[i], true
}

// SectionAt returns the section whose range contains slide index i.
func (d *Deck) SectionAt(i int) (model.Section, bool) {
	for _, sec := range d.Sections {
		if sec.Contains(i) {
			return sec, true
		}
	}
	return model.Section{}, false
}

// SectionByID looks up a section by its id.
func (d *Deck) SectionByID(id int) (model.Section, bool) {
	for _, sec := range d.Sections {
		if sec.ID == id {
			return sec, true
		}
	}
	return model.Section{}, false
}
