package engine

import (
	"context"

	"github.com/slexs/whale-of-fortune/internal/wheel"
)

// GameState is the lifecycle of one wager. Settled states are terminal.
type GameState string

const (
	StatePending         GameState = "pending"
	StateAwaitingEntropy GameState = "awaiting_entropy"
	StateSettledWin      GameState = "settled_win"
	StateSettledLose     GameState = "settled_lose"
	StateRefunded        GameState = "refunded"
)

// Coin is a single (denom, amount) pair.
type Coin struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount"`
}

// Game is one wager, keyed by a monotonically increasing index. Games are
// never deleted; the store is an append-only ledger.
type Game struct {
	Index      uint64        `json:"index"`
	Player     string        `json:"player"`
	BetSegment uint8         `json:"bet_segment"`
	BetSize    uint64        `json:"bet_size"`
	Denom      string        `json:"denom"`
	FreeSpin   bool          `json:"free_spin"`
	State      GameState     `json:"state"`
	Outcome    *uint8        `json:"outcome,omitempty"`
	Payout     uint64        `json:"payout"`
	Rules      wheel.RuleSet `json:"rules"`
}

// Settled reports whether the game reached a terminal state.
func (g *Game) Settled() bool {
	switch g.State {
	case StateSettledWin, StateSettledLose, StateRefunded:
		return true
	}
	return false
}

// PlayerHistory aggregates every settled game of one player.
type PlayerHistory struct {
	Player       string `json:"player"`
	GamesPlayed  uint64 `json:"games_played"`
	Wins         uint64 `json:"wins"`
	Losses       uint64 `json:"losses"`
	TotalWagered uint64 `json:"total_wagered"`
	TotalWon     uint64 `json:"total_won"`
	FreeSpins    uint64 `json:"free_spins"`
}

// LeaderBoardEntry is one row of the bounded descending leaderboard.
type LeaderBoardEntry struct {
	Player string `json:"player"`
	Wins   uint64 `json:"wins"`
}

// Disbursement instructs the payout channel to transfer funds after the call
// that produced it has committed.
type Disbursement struct {
	To     string `json:"to"`
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount"`
	Reason string `json:"reason"` // payout, refund, fee
}

// EntropyRequest is the outbound instruction to the randomness oracle.
type EntropyRequest struct {
	Requester       string `json:"requester"`
	CallbackAddress string `json:"callback_address"`
	GasLimit        uint64 `json:"gas_limit"`
	Fee             Coin   `json:"fee"`
	Token           string `json:"token"`
}

// SettlementResult is what a successful FulfillRandomness returns: the settled
// game plus at most one payout instruction.
type SettlementResult struct {
	Game         *Game         `json:"game"`
	Disbursement *Disbursement `json:"disbursement,omitempty"`
}

// Treasury reports the current liquidity pool balance for a denom.
type Treasury interface {
	PoolBalance(ctx context.Context, denom string) (uint64, error)
}

// OracleClient delivers entropy requests to the randomness oracle.
type OracleClient interface {
	RequestEntropy(ctx context.Context, req EntropyRequest) error
}

// Disburser accepts pay-X-to-Z instructions emitted by settlements.
type Disburser interface {
	Disburse(d Disbursement) error
}
