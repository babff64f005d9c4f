package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Assignment places one session of a curriculum into a (slot, venue) cell.
type Assignment struct {
	CurriculumID int64 `json:"curriculum_id"`
	SessionIndex int   `json:"session_index"`
	Slot         int   `json:"slot"`
	VenueID      int64 `json:"venue_id"`
}

// Schedule is a set of assignments covering every curriculum's target
// sessions while satisfying all hard constraints.
type Schedule struct {
	Assignments []Assignment `json:"assignments"`
}

// ScheduleHistory is a persisted solve result.
type ScheduleHistory struct {
	ID           string         `db:"id" json:"id"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	Cost         float64        `db:"cost" json:"cost"`
	ScheduleJSON types.JSONText `db:"schedule_json" json:"schedule_json"`
}

// ScheduleHistoryMeta is the lightweight list-view projection of a history row.
type ScheduleHistoryMeta struct {
	ID        string    `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Cost      float64   `db:"cost" json:"cost"`
}
