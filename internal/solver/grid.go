package solver

// TimeGrid describes the weekly time layout: Days days of Periods periods
// each. A slot index is day*Periods + period.
type TimeGrid struct {
	Days    int
	Periods int
}

// Slots returns the total number of slots in one week.
func (g TimeGrid) Slots() int {
	return g.Days * g.Periods
}

// Slot maps a (day, period) pair to its slot index.
func (g TimeGrid) Slot(day, period int) int {
	return day*g.Periods + period
}

// Day returns the day component of a slot index.
func (g TimeGrid) Day(slot int) int {
	return slot / g.Periods
}

// Period returns the period component of a slot index.
func (g TimeGrid) Period(slot int) int {
	return slot % g.Periods
}

// Contains reports whether slot is a valid index on this grid.
func (g TimeGrid) Contains(slot int) bool {
	return slot >= 0 && slot < g.Slots()
}

const wordBits = 64

// SlotMask is a fixed-length bitset over the slots of a grid. Masks loaded
// from the store are 64-bit integers, but the in-memory representation grows
// with the grid so oversized grids keep working.
type SlotMask struct {
	words []uint64
}

// NewSlotMask returns an empty mask sized for nslots slots.
func NewSlotMask(nslots int) SlotMask {
	return SlotMask{words: make([]uint64, (nslots+wordBits-1)/wordBits)}
}

// MaskFromInt64 expands a stored forbidden-mask integer onto a grid-sized
// mask. Bit i of raw marks slot i.
func MaskFromInt64(raw int64, nslots int) SlotMask {
	m := NewSlotMask(nslots)
	if len(m.words) > 0 {
		m.words[0] = uint64(raw)
	}
	return m
}

// Set marks slot as forbidden.
func (m SlotMask) Set(slot int) {
	m.words[slot/wordBits] |= 1 << uint(slot%wordBits)
}

// Clear unmarks slot.
func (m SlotMask) Clear(slot int) {
	m.words[slot/wordBits] &^= 1 << uint(slot%wordBits)
}

// Has reports whether slot is marked.
func (m SlotMask) Has(slot int) bool {
	w := slot / wordBits
	if w >= len(m.words) {
		return false
	}
	return m.words[w]&(1<<uint(slot%wordBits)) != 0
}

// Or folds other into m.
func (m SlotMask) Or(other SlotMask) {
	for i := range m.words {
		if i < len(other.words) {
			m.words[i] |= other.words[i]
		}
	}
}

// Count returns the number of marked slots.
func (m SlotMask) Count() int {
	total := 0
	for _, w := range m.words {
		for ; w != 0; w &= w - 1 {
			total++
		}
	}
	return total
}

// Clone returns an independent copy of the mask.
func (m SlotMask) Clone() SlotMask {
	words := make([]uint64, len(m.words))
	copy(words, m.words)
	return SlotMask{words: words}
}
