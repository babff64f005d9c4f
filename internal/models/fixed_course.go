package models

// FixedCourse pins one session of a curriculum to a slot and venue. The
// solver must reproduce every fixed course verbatim.
type FixedCourse struct {
	ID           int64 `db:"id" json:"id"`
	CurriculumID int64 `db:"curriculum_id" json:"curriculum_id"`
	Slot         int   `db:"slot" json:"slot"`
	VenueID      int64 `db:"venue_id" json:"venue_id"`
}
