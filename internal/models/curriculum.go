package models

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx/types"
)

// WeekType says on which academic weeks a curriculum's sessions occur.
type WeekType string

const (
	WeekEvery WeekType = "Every"
	WeekOdd   WeekType = "Odd"
	WeekEven  WeekType = "Even"
)

// Overlaps reports whether sessions of the two week types can ever occupy the
// same physical slot in the same week.
func (w WeekType) Overlaps(other WeekType) bool {
	if w == WeekEvery || other == WeekEvery {
		return true
	}
	return w == other
}

// Valid reports whether w is a recognized week type.
func (w WeekType) Valid() bool {
	switch w {
	case WeekEvery, WeekOdd, WeekEven:
		return true
	}
	return false
}

// Curriculum is a weekly teaching requirement: TargetSessions sessions of
// (class, subject, teacher) must be placed on the grid.
type Curriculum struct {
	ID              int64          `db:"id" json:"id"`
	ClassID         int64          `db:"class_id" json:"class_id"`
	SubjectID       string         `db:"subject_id" json:"subject_id"`
	TeacherID       int64          `db:"teacher_id" json:"teacher_id"`
	TargetSessions  int            `db:"target_sessions" json:"target_sessions"`
	IsCombinedClass bool           `db:"is_combined_class" json:"is_combined_class"`
	CombinedClasses types.JSONText `db:"combined_class_ids_json" json:"-"`
	WeekType        WeekType       `db:"week_type" json:"week_type"`
}

// CombinedClassIDs decodes the stored JSON list of jointly taught classes.
// An empty list is returned when the curriculum is not combined.
func (c *Curriculum) CombinedClassIDs() ([]int64, error) {
	if len(c.CombinedClasses) == 0 {
		return nil, nil
	}
	var ids []int64
	if err := json.Unmarshal(c.CombinedClasses, &ids); err != nil {
		return nil, fmt.Errorf("curriculum %d: decode combined class ids: %w", c.ID, err)
	}
	return ids, nil
}

// MemberClasses returns every class occupied by one session of this
// curriculum: the owning class plus any combined classes, deduplicated.
func (c *Curriculum) MemberClasses() ([]int64, error) {
	if !c.IsCombinedClass {
		return []int64{c.ClassID}, nil
	}
	combined, err := c.CombinedClassIDs()
	if err != nil {
		return nil, err
	}
	members := []int64{c.ClassID}
	for _, id := range combined {
		if id != c.ClassID {
			members = append(members, id)
		}
	}
	return members, nil
}
