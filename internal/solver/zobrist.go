package solver

import (
	"github.com/shlwsh/aicourse-scheduler/internal/models"
)

// Hash is a 128-bit order-independent fingerprint of an assignment set.
// Adding or removing one assignment XORs its tag in or out, so equal sets
// hash equal regardless of insertion order.
type Hash struct {
	Hi uint64
	Lo uint64
}

// Zero reports whether the hash is the fingerprint of the empty set.
func (h Hash) Zero() bool {
	return h.Hi == 0 && h.Lo == 0
}

// Xor combines two hashes.
func (h Hash) Xor(other Hash) Hash {
	return Hash{Hi: h.Hi ^ other.Hi, Lo: h.Lo ^ other.Lo}
}

// splitmix64 is the finalizer from the SplitMix64 generator. It is used as a
// cheap universal mixer so per-assignment tags need no precomputed table.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Tag derives the Zobrist tag of one assignment from its identifying tuple.
func Tag(a models.Assignment) Hash {
	key := splitmix64(uint64(a.CurriculumID))
	key = splitmix64(key ^ uint64(a.SessionIndex)<<1 ^ 0xa24baed4963ee407)
	key = splitmix64(key ^ uint64(a.Slot)<<2 ^ 0x9fb21c651e98df25)
	key = splitmix64(key ^ uint64(a.VenueID)<<3)
	return Hash{Hi: splitmix64(key ^ 0xd6e8feb86659fd93), Lo: key}
}

// HashAssignments fingerprints a whole assignment set.
func HashAssignments(assignments []models.Assignment) Hash {
	var h Hash
	for _, a := range assignments {
		h = h.Xor(Tag(a))
	}
	return h
}
