package models

// Subject represents an academic subject and its slot restrictions.
type Subject struct {
	ID            string `db:"id_text" json:"id"`
	Name          string `db:"name" json:"name"`
	ForbiddenMask int64  `db:"forbidden_mask" json:"forbidden_mask"`
	// AllowSameDay permits two sessions of this subject for one class on the
	// same day. Defaults to false.
	AllowSameDay bool `db:"allow_same_day" json:"allow_same_day"`
	// PreferredPeriods marks the period band (bit per period within a day)
	// this subject prefers. Zero means no preference.
	PreferredPeriods int64 `db:"preferred_periods" json:"preferred_periods"`
}
