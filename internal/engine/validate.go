package engine

import (
	"math/bits"

	"github.com/slexs/whale-of-fortune/internal/wheel"
)

// validateBet runs the full admission check for a paid wager. It is pure: a
// failed check never creates or mutates a game.
func validateBet(funds []Coin, declared uint64, betSegment uint8, poolDenom string, poolBalance, capBps uint64) error {
	if betSegment >= wheel.SegmentCount {
		return ErrInvalidBetSegment
	}
	if len(funds) == 0 {
		return ErrZeroBet
	}
	if len(funds) > 1 {
		return ErrMultipleCurrenciesSent
	}

	coin := funds[0]
	if coin.Denom != poolDenom {
		return ErrCurrencyMismatch
	}
	if coin.Amount == 0 {
		return ErrZeroBet
	}
	if coin.Amount != declared {
		return ErrAmountMismatch
	}
	if coin.Amount > poolCap(poolBalance, capBps) {
		return ErrBetExceedsPoolCap
	}
	return nil
}

// validateFreeBet is the free-spin variant: no funds are staked, the player's
// credit balance backs the wager instead.
func validateFreeBet(betSegment uint8, freeSpins uint64) error {
	if betSegment >= wheel.SegmentCount {
		return ErrInvalidBetSegment
	}
	if freeSpins == 0 {
		return ErrNoFreeSpinsRemaining
	}
	return nil
}

// poolCap is the largest admissible bet: poolBalance * capBps / 10000, in
// 128-bit intermediate arithmetic so large pools cannot overflow.
func poolCap(poolBalance, capBps uint64) uint64 {
	if capBps > 10_000 {
		capBps = 10_000
	}
	hi, lo := bits.Mul64(poolBalance, capBps)
	limit, _ := bits.Div64(hi, lo, 10_000)
	return limit
}
