package wheel

import (
	"encoding/binary"
	"errors"
)

// EntropyLength is the exact randomness buffer size the oracle delivers.
const EntropyLength = 64

var ErrInvalidEntropyLength = errors.New("wheel: entropy must be exactly 64 bytes")

// Outcome maps a randomness buffer to one wheel segment using weighted
// cumulative selection: the first 4 bytes, read big-endian, are reduced modulo
// the total weight, and the first segment whose cumulative weight exceeds the
// reduced value wins. Pure integer arithmetic, so the same buffer and rule set
// always reproduce the same segment.
func (rs RuleSet) Outcome(entropy []byte) (uint8, error) {
	if len(entropy) != EntropyLength {
		return 0, ErrInvalidEntropyLength
	}
	if err := rs.Validate(); err != nil {
		return 0, err
	}

	raw := binary.BigEndian.Uint32(entropy[:4])
	r := uint64(raw) % rs.TotalWeight()

	var cumulative uint64
	for segment, seg := range rs {
		cumulative += seg.Weight
		if r < cumulative {
			return uint8(segment), nil
		}
	}
	// Unreachable: r < TotalWeight and the loop covers the full range.
	return SegmentCount - 1, nil
}
