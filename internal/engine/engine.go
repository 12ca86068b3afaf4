package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/slexs/whale-of-fortune/internal/config"
	"github.com/slexs/whale-of-fortune/internal/logger"
	"github.com/slexs/whale-of-fortune/internal/wheel"
)

// Engine is the bet-to-settlement state machine. Every mutating operation is
// one synchronous state transition: reads first, then a single atomic commit,
// then outbound messages. The mutex emulates the host model of one inbound
// operation at a time.
type Engine struct {
	mu sync.Mutex

	cfg       *config.Config
	store     *Store
	treasury  Treasury
	oracle    OracleClient
	disburser Disburser

	rules wheel.RuleSet

	// Runtime-mutable config, persisted across restarts.
	oracleAddr string
	capBps     uint64
}

func New(cfg *config.Config, store *Store, treasury Treasury, oracle OracleClient, disburser Disburser) (*Engine, error) {
	rules, err := rulesFromConfig(cfg.Rules)
	if err != nil {
		return nil, err
	}
	if err := store.InitIndex(); err != nil {
		return nil, fmt.Errorf("init game index: %w", err)
	}

	e := &Engine{
		cfg:        cfg,
		store:      store,
		treasury:   treasury,
		oracle:     oracle,
		disburser:  disburser,
		rules:      rules,
		oracleAddr: cfg.Oracle.Address,
		capBps:     cfg.Engine.CapFractionBps,
	}

	// Admin overrides written by a previous run win over the config file.
	if addr, ok, err := store.LoadOracleAddress(); err != nil {
		return nil, err
	} else if ok {
		e.oracleAddr = addr
	}
	if bps, ok, err := store.LoadCapBps(); err != nil {
		return nil, err
	} else if ok {
		e.capBps = bps
	}

	return e, nil
}

func rulesFromConfig(entries []config.RuleEntry) (wheel.RuleSet, error) {
	var rules wheel.RuleSet
	if len(entries) != wheel.SegmentCount {
		return rules, fmt.Errorf("engine: expected %d rule entries, got %d", wheel.SegmentCount, len(entries))
	}
	for i, entry := range entries {
		rules[i] = wheel.Segment{Weight: entry.Weight, Multiplier: entry.Multiplier}
	}
	return rules, rules.Validate()
}

// PlaceBet admits a paid wager, opens a game at the next index and asks the
// oracle for entropy. The game stays in awaiting_entropy until the callback.
func (e *Engine) PlaceBet(ctx context.Context, player string, betSegment uint8, betSize uint64, funds []Coin) (*Game, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	poolBalance, err := e.treasury.PoolBalance(ctx, e.cfg.Engine.HouseDenom)
	if err != nil {
		return nil, fmt.Errorf("query pool balance: %w", err)
	}
	if err := validateBet(funds, betSize, betSegment, e.cfg.Engine.HouseDenom, poolBalance, e.capBps); err != nil {
		return nil, err
	}

	game, err := e.openGame(ctx, player, betSegment, betSize, false)
	if err != nil {
		return nil, err
	}

	if fee := e.cfg.Engine.FeeAmount; fee > 0 && e.cfg.Engine.FeeCollector != "" {
		e.emit(Disbursement{
			To:     e.cfg.Engine.FeeCollector,
			Denom:  e.cfg.Engine.HouseDenom,
			Amount: fee,
			Reason: "fee",
		})
	}

	logger.Info("bet placed", "game", game.Index, "player", player, "segment", betSegment, "size", betSize)
	return game, nil
}

// PlaceFreeBet admits a wager backed by one loyalty free spin. The stake is a
// single base unit and no external funds change hands.
func (e *Engine) PlaceFreeBet(ctx context.Context, player string, betSegment uint8) (*Game, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	history, err := e.loadHistorySeeded(player)
	if err != nil {
		return nil, err
	}
	if err := validateFreeBet(betSegment, history.FreeSpins); err != nil {
		return nil, err
	}
	history.FreeSpins--

	game, err := e.openGameWithHistory(ctx, player, betSegment, 1, true, history)
	if err != nil {
		return nil, err
	}

	logger.Info("free bet placed", "game", game.Index, "player", player, "segment", betSegment)
	return game, nil
}

func (e *Engine) openGame(ctx context.Context, player string, betSegment uint8, betSize uint64, freeSpin bool) (*Game, error) {
	return e.openGameWithHistory(ctx, player, betSegment, betSize, freeSpin, nil)
}

// openGameWithHistory creates the game record, advances the index counter and
// issues the entropy request. When history is non-nil its new balance commits
// in the same batch as the game.
func (e *Engine) openGameWithHistory(ctx context.Context, player string, betSegment uint8, betSize uint64, freeSpin bool, history *PlayerHistory) (*Game, error) {
	index, err := e.store.LoadIndex()
	if err != nil {
		return nil, err
	}

	game := &Game{
		Index:      index,
		Player:     player,
		BetSegment: betSegment,
		BetSize:    betSize,
		Denom:      e.cfg.Engine.HouseDenom,
		FreeSpin:   freeSpin,
		State:      StateAwaitingEntropy,
		Rules:      e.rules,
	}

	token, err := encodeToken(callbackToken{Game: index, OriginalSender: player})
	if err != nil {
		return nil, err
	}

	m := newMutation()
	m.SetGame(game)
	m.SetIndex(index + 1)
	if history != nil {
		m.SetHistory(history)
	}
	if err := e.store.Commit(m); err != nil {
		return nil, fmt.Errorf("commit game %d: %w", index, err)
	}

	req := EntropyRequest{
		Requester:       e.cfg.Engine.Identity,
		CallbackAddress: e.cfg.Engine.Identity,
		GasLimit:        e.cfg.Oracle.CallbackGasLimit,
		Fee:             Coin{Denom: e.cfg.Engine.HouseDenom, Amount: e.cfg.Oracle.Fee},
		Token:           token,
	}
	if err := e.oracle.RequestEntropy(ctx, req); err != nil {
		// The game is durable and stuck awaiting entropy; AdminExpireGame is
		// the recovery path.
		logger.Error("entropy request failed", "game", index, "err", err)
		return nil, fmt.Errorf("request entropy for game %d: %w", index, err)
	}

	return game, nil
}

// FulfillRandomness is the oracle callback. It authenticates the sender,
// correlates the token back to its game, resolves the outcome and settles.
// A game settles at most once: any later callback gets ErrGameAlreadySettled.
func (e *Engine) FulfillRandomness(caller, claimedRequester string, entropy []byte, token string) (*SettlementResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.oracleAddr {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorizedCallbackSender, caller)
	}
	if claimedRequester != e.cfg.Engine.Identity {
		return nil, fmt.Errorf("%w: %s", ErrUntrustedRequester, claimedRequester)
	}

	decoded, err := decodeToken(token)
	if err != nil {
		return nil, err
	}

	game, err := e.store.LoadGame(decoded.Game)
	if err != nil {
		return nil, err
	}
	if game.State != StateAwaitingEntropy {
		return nil, fmt.Errorf("%w: index %d", ErrGameAlreadySettled, game.Index)
	}
	if game.Player != decoded.OriginalSender {
		return nil, fmt.Errorf("%w: sender does not match game %d", ErrInvalidToken, game.Index)
	}

	outcome, err := game.Rules.Outcome(entropy)
	if err != nil {
		return nil, err
	}

	result, err := e.settle(game, outcome)
	if err != nil {
		return nil, err
	}

	if result.Disbursement != nil {
		e.emit(*result.Disbursement)
	}

	logger.Info("game settled",
		"game", game.Index, "player", game.Player,
		"outcome", outcome, "state", game.State, "payout", game.Payout)
	return result, nil
}

// settle computes the payout, mutates the game to its terminal state and
// folds the result into the player ledger and leaderboard, in one commit.
func (e *Engine) settle(game *Game, outcome uint8) (*SettlementResult, error) {
	win := outcome == game.BetSegment

	var payout uint64
	if win {
		p, err := game.Rules.Payout(game.BetSize, outcome)
		if err != nil {
			return nil, err
		}
		payout = p
	}

	game.Outcome = &outcome
	game.Payout = payout
	if win {
		game.State = StateSettledWin
	} else {
		game.State = StateSettledLose
	}

	history, err := e.loadHistorySeeded(game.Player)
	if err != nil {
		return nil, err
	}

	// Free spins stake no pool funds, so they do not count as wagered volume.
	wagered := game.BetSize
	if game.FreeSpin {
		wagered = 0
	}

	m := newMutation()
	if win {
		recordWin(history, wagered, payout, e.cfg.Engine.LoyaltyThreshold)

		board, err := e.store.LoadLeaderboard()
		if err != nil {
			return nil, err
		}
		board = mergeLeaderboard(board, game.Player, e.cfg.Engine.LeaderboardSize)
		m.SetLeaderboard(board)
	} else {
		recordLoss(history, wagered, e.cfg.Engine.LoyaltyThreshold)
	}

	m.SetGame(game)
	m.SetHistory(history)
	if err := e.store.Commit(m); err != nil {
		return nil, fmt.Errorf("commit settlement %d: %w", game.Index, err)
	}

	result := &SettlementResult{Game: game}
	if win {
		result.Disbursement = &Disbursement{
			To:     game.Player,
			Denom:  game.Denom,
			Amount: payout,
			Reason: "payout",
		}
	}
	return result, nil
}

// loadHistorySeeded returns the player's history, creating it with the
// new-player free-spin grant on first contact.
func (e *Engine) loadHistorySeeded(player string) (*PlayerHistory, error) {
	history, existed, err := e.store.LoadHistory(player)
	if err != nil {
		return nil, err
	}
	if !existed {
		history.FreeSpins = e.cfg.Engine.NewPlayerFreeSpins
	}
	return history, nil
}

func (e *Engine) emit(d Disbursement) {
	if err := e.disburser.Disburse(d); err != nil {
		logger.Error("disbursement failed", "to", d.To, "amount", d.Amount, "reason", d.Reason, "err", err)
	}
}
