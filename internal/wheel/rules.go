package wheel

import (
	"errors"
	"fmt"
	"math/bits"
)

// SegmentCount is the number of positions on the wheel.
const SegmentCount = 7

var (
	ErrInvalidRuleSet = errors.New("wheel: every segment weight must be positive")
	ErrPayoutOverflow = errors.New("wheel: payout multiplication overflows")
	ErrInvalidSegment = errors.New("wheel: segment out of range")
)

// Segment pairs the probability weight of a wheel position with the payout
// multiplier applied when a bet on that position wins.
type Segment struct {
	Weight     uint64 `json:"weight"`
	Multiplier uint64 `json:"multiplier"`
}

// RuleSet is one full wheel layout. It is snapshotted into every game at
// creation, so changing the live default never alters an in-flight wager.
type RuleSet [SegmentCount]Segment

func (rs RuleSet) Validate() error {
	for i, seg := range rs {
		if seg.Weight == 0 {
			return fmt.Errorf("%w: segment %d", ErrInvalidRuleSet, i)
		}
	}
	return nil
}

func (rs RuleSet) TotalWeight() uint64 {
	var total uint64
	for _, seg := range rs {
		total += seg.Weight
	}
	return total
}

// Payout returns betSize * multiplier for the given segment. Overflow is an
// error, never a silent wrap.
func (rs RuleSet) Payout(betSize uint64, segment uint8) (uint64, error) {
	if int(segment) >= SegmentCount {
		return 0, ErrInvalidSegment
	}
	hi, lo := bits.Mul64(betSize, rs[segment].Multiplier)
	if hi != 0 {
		return 0, ErrPayoutOverflow
	}
	return lo, nil
}
