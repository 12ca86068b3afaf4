package engine

import (
	"fmt"

	"github.com/slexs/whale-of-fortune/internal/logger"
)

// AdminSetOracleAddress swaps the trusted callback sender. In-flight games are
// unaffected: their tokens stay valid, only the sender check changes.
func (e *Engine) AdminSetOracleAddress(caller, addr string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.cfg.Engine.Admin {
		return ErrUnauthorized
	}
	if addr == "" {
		return fmt.Errorf("engine: oracle address must not be empty")
	}
	if err := e.store.SaveOracleAddress(addr); err != nil {
		return err
	}
	e.oracleAddr = addr
	logger.Info("oracle address updated", "address", addr)
	return nil
}

// AdminSetCapFraction updates the pool-cap fraction, in basis points.
func (e *Engine) AdminSetCapFraction(caller string, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.cfg.Engine.Admin {
		return ErrUnauthorized
	}
	if bps == 0 || bps > 10_000 {
		return fmt.Errorf("engine: cap fraction must be between 1 and 10000 bps, got %d", bps)
	}
	if err := e.store.SaveCapBps(bps); err != nil {
		return err
	}
	e.capBps = bps
	logger.Info("cap fraction updated", "bps", bps)
	return nil
}

// AdminExpireGame is the recovery path for a game whose oracle never called
// back. The game moves to refunded, the stake flows back to the player (or
// the consumed free spin is restored) and no win or loss is recorded.
func (e *Engine) AdminExpireGame(caller string, index uint64) (*Game, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.cfg.Engine.Admin {
		return nil, ErrUnauthorized
	}

	game, err := e.store.LoadGame(index)
	if err != nil {
		return nil, err
	}
	if game.State != StateAwaitingEntropy {
		return nil, fmt.Errorf("%w: index %d", ErrGameAlreadySettled, index)
	}

	game.State = StateRefunded

	m := newMutation()
	m.SetGame(game)
	if game.FreeSpin {
		history, err := e.loadHistorySeeded(game.Player)
		if err != nil {
			return nil, err
		}
		history.FreeSpins++
		m.SetHistory(history)
	}
	if err := e.store.Commit(m); err != nil {
		return nil, fmt.Errorf("commit expiry %d: %w", index, err)
	}

	if !game.FreeSpin {
		e.emit(Disbursement{
			To:     game.Player,
			Denom:  game.Denom,
			Amount: game.BetSize,
			Reason: "refund",
		})
	}

	logger.Warn("game expired by admin", "game", index, "player", game.Player)
	return game, nil
}
