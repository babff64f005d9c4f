package models

// Teacher represents a teaching staff member available for assignment.
type Teacher struct {
	ID            int64  `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	ForbiddenMask int64  `db:"forbidden_mask" json:"forbidden_mask"`
	// MaxPerDay caps sessions per day for this teacher. Zero means unlimited.
	MaxPerDay int `db:"max_per_day" json:"max_per_day"`
}
