package models

// Venue represents a physical room. Capacity is the number of classes it can
// host simultaneously; values above 1 model labs and auditoria that take
// combined sessions.
type Venue struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Capacity int    `db:"capacity" json:"capacity"`
}
