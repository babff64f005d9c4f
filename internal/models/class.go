package models

// Class represents a student group that receives scheduled sessions.
type Class struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
