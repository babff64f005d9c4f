package models

// ExclusionKind names the entity dimension an exclusion applies to.
type ExclusionKind string

const (
	ExclusionTeacher ExclusionKind = "teacher"
	ExclusionClass   ExclusionKind = "class"
	ExclusionVenue   ExclusionKind = "venue"
)

// Valid reports whether k is a recognized exclusion kind.
func (k ExclusionKind) Valid() bool {
	switch k {
	case ExclusionTeacher, ExclusionClass, ExclusionVenue:
		return true
	}
	return false
}

// Exclusion declares one (entity, slot) pair unavailable. Exclusions are
// folded into the matching forbidden masks at load time.
type Exclusion struct {
	ID       int64         `db:"id" json:"id"`
	Kind     ExclusionKind `db:"kind" json:"kind"`
	EntityID int64         `db:"entity_id" json:"entity_id"`
	Slot     int           `db:"slot" json:"slot"`
}
