package engine

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slexs/whale-of-fortune/internal/config"
	"github.com/slexs/whale-of-fortune/internal/wheel"
	"github.com/slexs/whale-of-fortune/pkg/kvstore"
)

const (
	testOracle = "beacon"
	testAdmin  = "wof-admin"
	testDenom  = "ukuji"
)

type fakeTreasury struct {
	balance uint64
}

func (f *fakeTreasury) PoolBalance(_ context.Context, _ string) (uint64, error) {
	return f.balance, nil
}

type fakeOracle struct {
	requests []EntropyRequest
}

func (f *fakeOracle) RequestEntropy(_ context.Context, req EntropyRequest) error {
	f.requests = append(f.requests, req)
	return nil
}

func (f *fakeOracle) lastToken(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1].Token
}

type fakeDisburser struct {
	payouts []Disbursement
}

func (f *fakeDisburser) Disburse(d Disbursement) error {
	f.payouts = append(f.payouts, d)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{
			Identity:           "wof-engine",
			Admin:              testAdmin,
			HouseDenom:         testDenom,
			CapFractionBps:     100,
			LoyaltyThreshold:   5,
			NewPlayerFreeSpins: 1,
			LeaderboardSize:    5,
		},
		Oracle: config.OracleConfig{
			Address:          testOracle,
			CallbackGasLimit: 100_000,
		},
		Rules: config.DefaultRules(),
	}
}

type testRig struct {
	engine    *Engine
	store     *Store
	treasury  *fakeTreasury
	oracle    *fakeOracle
	disburser *fakeDisburser
}

func newTestRig(t *testing.T, cfg *config.Config) *testRig {
	t.Helper()

	kv, err := kvstore.NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	store := NewStore(kv)
	treasury := &fakeTreasury{balance: 1_000_000}
	oracle := &fakeOracle{}
	disburser := &fakeDisburser{}

	eng, err := New(cfg, store, treasury, oracle, disburser)
	require.NoError(t, err)

	return &testRig{
		engine:    eng,
		store:     store,
		treasury:  treasury,
		oracle:    oracle,
		disburser: disburser,
	}
}

// entropyFor builds a 64-byte buffer whose weighted selection lands on the
// given segment (default weights 24,12,8,4,2,1,1).
func entropyFor(segment uint8) []byte {
	boundaries := []uint32{0, 24, 36, 44, 48, 50, 51}
	buf := make([]byte, wheel.EntropyLength)
	binary.BigEndian.PutUint32(buf[:4], boundaries[segment])
	return buf
}

func (r *testRig) fulfill(t *testing.T, segment uint8) (*SettlementResult, error) {
	t.Helper()
	return r.engine.FulfillRandomness(testOracle, "wof-engine", entropyFor(segment), r.oracle.lastToken(t))
}

func TestPlaceBetOpensAwaitingGame(t *testing.T) {
	rig := newTestRig(t, testConfig())

	game, err := rig.engine.PlaceBet(context.Background(), "alice", 3, 100, []Coin{{Denom: testDenom, Amount: 100}})
	require.NoError(t, err)

	assert.Equal(t, uint64(0), game.Index)
	assert.Equal(t, StateAwaitingEntropy, game.State)
	assert.Equal(t, uint8(3), game.BetSegment)
	assert.Nil(t, game.Outcome)

	// The entropy request went out, correlated by a token naming the game.
	require.Len(t, rig.oracle.requests, 1)
	token, err := decodeToken(rig.oracle.requests[0].Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), token.Game)
	assert.Equal(t, "alice", token.OriginalSender)

	// The counter now points at the next open slot.
	idx, err := rig.store.LoadIndex()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), idx)
}

func TestPlaceBetAdmissionErrors(t *testing.T) {
	tests := []struct {
		name    string
		segment uint8
		size    uint64
		funds   []Coin
		wantErr error
	}{
		{
			name:    "segment out of range",
			segment: 7,
			size:    100,
			funds:   []Coin{{Denom: testDenom, Amount: 100}},
			wantErr: ErrInvalidBetSegment,
		},
		{
			name:    "no funds attached",
			segment: 1,
			size:    100,
			funds:   nil,
			wantErr: ErrZeroBet,
		},
		{
			name:    "multiple currencies",
			segment: 1,
			size:    100,
			funds:   []Coin{{Denom: testDenom, Amount: 50}, {Denom: "uatom", Amount: 50}},
			wantErr: ErrMultipleCurrenciesSent,
		},
		{
			name:    "wrong currency",
			segment: 1,
			size:    100,
			funds:   []Coin{{Denom: "uatom", Amount: 100}},
			wantErr: ErrCurrencyMismatch,
		},
		{
			name:    "zero amount",
			segment: 1,
			size:    0,
			funds:   []Coin{{Denom: testDenom, Amount: 0}},
			wantErr: ErrZeroBet,
		},
		{
			name:    "declared size mismatch",
			segment: 1,
			size:    90,
			funds:   []Coin{{Denom: testDenom, Amount: 100}},
			wantErr: ErrAmountMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newTestRig(t, testConfig())

			_, err := rig.engine.PlaceBet(context.Background(), "alice", tt.segment, tt.size, tt.funds)
			assert.ErrorIs(t, err, tt.wantErr)

			// Validation failure creates nothing.
			assert.Empty(t, rig.oracle.requests)
			_, err = rig.store.LoadGame(0)
			assert.ErrorIs(t, err, ErrGameNotFound)
		})
	}
}

func TestPlaceBetPoolCap(t *testing.T) {
	rig := newTestRig(t, testConfig())
	rig.treasury.balance = 1000 // cap at 1% -> 10

	_, err := rig.engine.PlaceBet(context.Background(), "alice", 1, 11, []Coin{{Denom: testDenom, Amount: 11}})
	assert.ErrorIs(t, err, ErrBetExceedsPoolCap)

	_, err = rig.engine.PlaceBet(context.Background(), "alice", 1, 10, []Coin{{Denom: testDenom, Amount: 10}})
	assert.NoError(t, err)
}

func TestPlaceBetForwardsFee(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.FeeAmount = 5
	cfg.Engine.FeeCollector = "house"
	rig := newTestRig(t, cfg)

	_, err := rig.engine.PlaceBet(context.Background(), "alice", 1, 100, []Coin{{Denom: testDenom, Amount: 100}})
	require.NoError(t, err)

	require.Len(t, rig.disburser.payouts, 1)
	assert.Equal(t, Disbursement{To: "house", Denom: testDenom, Amount: 5, Reason: "fee"}, rig.disburser.payouts[0])
}

func TestFulfillSettlesWin(t *testing.T) {
	rig := newTestRig(t, testConfig())

	_, err := rig.engine.PlaceBet(context.Background(), "alice", 5, 100, []Coin{{Denom: testDenom, Amount: 100}})
	require.NoError(t, err)

	result, err := rig.fulfill(t, 5)
	require.NoError(t, err)

	assert.Equal(t, StateSettledWin, result.Game.State)
	require.NotNil(t, result.Game.Outcome)
	assert.Equal(t, uint8(5), *result.Game.Outcome)
	assert.Equal(t, uint64(4500), result.Game.Payout) // 100 x 45, exact

	require.NotNil(t, result.Disbursement)
	assert.Equal(t, Disbursement{To: "alice", Denom: testDenom, Amount: 4500, Reason: "payout"}, *result.Disbursement)
	require.Len(t, rig.disburser.payouts, 1)

	history, err := rig.engine.QueryPlayerHistory("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), history.GamesPlayed)
	assert.Equal(t, uint64(1), history.Wins)
	assert.Equal(t, uint64(0), history.Losses)
	assert.Equal(t, uint64(100), history.TotalWagered)
	assert.Equal(t, uint64(4500), history.TotalWon)

	board, err := rig.engine.QueryLeaderBoard()
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, LeaderBoardEntry{Player: "alice", Wins: 1}, board[0])
}

func TestFulfillSettlesLoss(t *testing.T) {
	rig := newTestRig(t, testConfig())

	_, err := rig.engine.PlaceBet(context.Background(), "alice", 5, 100, []Coin{{Denom: testDenom, Amount: 100}})
	require.NoError(t, err)

	result, err := rig.fulfill(t, 0)
	require.NoError(t, err)

	assert.Equal(t, StateSettledLose, result.Game.State)
	assert.Equal(t, uint64(0), result.Game.Payout)
	assert.Nil(t, result.Disbursement)
	assert.Empty(t, rig.disburser.payouts)

	history, err := rig.engine.QueryPlayerHistory("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), history.Losses)
	assert.Equal(t, uint64(100), history.TotalWagered)

	board, err := rig.engine.QueryLeaderBoard()
	require.NoError(t, err)
	assert.Empty(t, board)
}

func TestFulfillIsIdempotent(t *testing.T) {
	rig := newTestRig(t, testConfig())

	_, err := rig.engine.PlaceBet(context.Background(), "alice", 5, 100, []Coin{{Denom: testDenom, Amount: 100}})
	require.NoError(t, err)

	_, err = rig.fulfill(t, 5)
	require.NoError(t, err)

	// A replayed callback must not settle or pay twice.
	_, err = rig.fulfill(t, 5)
	assert.ErrorIs(t, err, ErrGameAlreadySettled)
	assert.Len(t, rig.disburser.payouts, 1)

	history, err := rig.engine.QueryPlayerHistory("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), history.GamesPlayed)
}

func TestFulfillAuthentication(t *testing.T) {
	rig := newTestRig(t, testConfig())

	_, err := rig.engine.PlaceBet(context.Background(), "alice", 5, 100, []Coin{{Denom: testDenom, Amount: 100}})
	require.NoError(t, err)
	token := rig.oracle.lastToken(t)

	_, err = rig.engine.FulfillRandomness("mallory", "wof-engine", entropyFor(5), token)
	assert.ErrorIs(t, err, ErrUnauthorizedCallbackSender)

	_, err = rig.engine.FulfillRandomness(testOracle, "mallory", entropyFor(5), token)
	assert.ErrorIs(t, err, ErrUntrustedRequester)

	// The game is untouched, so the legitimate callback still settles it.
	game, err := rig.engine.QueryGame(0)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingEntropy, game.State)

	_, err = rig.engine.FulfillRandomness(testOracle, "wof-engine", entropyFor(5), token)
	assert.NoError(t, err)
}

func TestFulfillRejectsBadEntropyLength(t *testing.T) {
	rig := newTestRig(t, testConfig())

	_, err := rig.engine.PlaceBet(context.Background(), "alice", 5, 100, []Coin{{Denom: testDenom, Amount: 100}})
	require.NoError(t, err)
	token := rig.oracle.lastToken(t)

	for _, n := range []int{0, 63, 65} {
		_, err := rig.engine.FulfillRandomness(testOracle, "wof-engine", make([]byte, n), token)
		assert.ErrorIs(t, err, wheel.ErrInvalidEntropyLength, "length %d", n)
	}

	game, err := rig.engine.QueryGame(0)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingEntropy, game.State)
}

func TestFulfillRejectsForeignToken(t *testing.T) {
	rig := newTestRig(t, testConfig())

	_, err := rig.engine.PlaceBet(context.Background(), "alice", 5, 100, []Coin{{Denom: testDenom, Amount: 100}})
	require.NoError(t, err)

	forged, err := encodeToken(callbackToken{Game: 0, OriginalSender: "mallory"})
	require.NoError(t, err)

	_, err = rig.engine.FulfillRandomness(testOracle, "wof-engine", entropyFor(5), forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRuleSetSnapshotIsolation(t *testing.T) {
	rig := newTestRig(t, testConfig())

	_, err := rig.engine.PlaceBet(context.Background(), "alice", 5, 100, []Coin{{Denom: testDenom, Amount: 100}})
	require.NoError(t, err)

	// A live rule change after placement must not alter the in-flight wager.
	rig.engine.rules[5].Multiplier = 2

	result, err := rig.fulfill(t, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(4500), result.Game.Payout)
}

func TestFreeBetConsumesCredit(t *testing.T) {
	rig := newTestRig(t, testConfig())

	// New players are seeded with one free spin.
	game, err := rig.engine.PlaceFreeBet(context.Background(), "bob", 2)
	require.NoError(t, err)
	assert.True(t, game.FreeSpin)
	assert.Equal(t, uint64(1), game.BetSize)

	history, err := rig.engine.QueryPlayerHistory("bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), history.FreeSpins)

	_, err = rig.engine.PlaceFreeBet(context.Background(), "bob", 2)
	assert.ErrorIs(t, err, ErrNoFreeSpinsRemaining)
}

func TestFreeBetDoesNotCountAsWagered(t *testing.T) {
	rig := newTestRig(t, testConfig())

	_, err := rig.engine.PlaceFreeBet(context.Background(), "bob", 2)
	require.NoError(t, err)

	_, err = rig.fulfill(t, 2)
	require.NoError(t, err)

	history, err := rig.engine.QueryPlayerHistory("bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), history.Wins)
	assert.Equal(t, uint64(0), history.TotalWagered)
	assert.Equal(t, uint64(5), history.TotalWon) // 1 unit x 5
}

func TestLoyaltyGrantEveryFifthGame(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.NewPlayerFreeSpins = 0
	rig := newTestRig(t, cfg)

	for i := 1; i <= 15; i++ {
		_, err := rig.engine.PlaceBet(context.Background(), "alice", 6, 10, []Coin{{Denom: testDenom, Amount: 10}})
		require.NoError(t, err)
		_, err = rig.fulfill(t, 0) // always lose
		require.NoError(t, err)

		history, err := rig.engine.QueryPlayerHistory("alice")
		require.NoError(t, err)
		assert.Equal(t, uint64(i/5), history.FreeSpins, "after game %d", i)
	}
}

func TestLeaderboardBoundAndOrder(t *testing.T) {
	rig := newTestRig(t, testConfig())

	players := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9"}
	for i, player := range players {
		for n := 0; n <= i; n++ {
			_, err := rig.engine.PlaceBet(context.Background(), player, 0, 10, []Coin{{Denom: testDenom, Amount: 10}})
			require.NoError(t, err)
			_, err = rig.fulfill(t, 0) // always win
			require.NoError(t, err)
		}
	}

	board, err := rig.engine.QueryLeaderBoard()
	require.NoError(t, err)
	require.Len(t, board, 5)

	assert.Equal(t, LeaderBoardEntry{Player: "p9", Wins: 10}, board[0])
	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].Wins, board[i].Wins)
	}
}

func TestQueryLatestIndex(t *testing.T) {
	rig := newTestRig(t, testConfig())

	_, err := rig.engine.QueryLatestIndex()
	assert.ErrorIs(t, err, ErrGameNotFound)

	_, err = rig.engine.PlaceBet(context.Background(), "alice", 1, 100, []Coin{{Denom: testDenom, Amount: 100}})
	require.NoError(t, err)

	latest, err := rig.engine.QueryLatestIndex()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), latest)
}

func TestQueryPlayerHistoryDefaultsToZero(t *testing.T) {
	rig := newTestRig(t, testConfig())

	history, err := rig.engine.QueryPlayerHistory("nobody")
	require.NoError(t, err)
	assert.Equal(t, &PlayerHistory{Player: "nobody"}, history)
}

func TestQueryGameNotFound(t *testing.T) {
	rig := newTestRig(t, testConfig())

	_, err := rig.engine.QueryGame(42)
	assert.ErrorIs(t, err, ErrGameNotFound)
}
