package engine

// QueryGame returns a snapshot of the game at index.
func (e *Engine) QueryGame(index uint64) (*Game, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.LoadGame(index)
}

// QueryPlayerHistory returns the player's aggregates. An unknown player gets
// the default zero record, not an error.
func (e *Engine) QueryPlayerHistory(player string) (*PlayerHistory, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	history, _, err := e.store.LoadHistory(player)
	if err != nil {
		return nil, err
	}
	return history, nil
}

// QueryLatestIndex returns the index of the most recently opened game. The
// counter names the next open slot, so this is counter - 1.
func (e *Engine) QueryLatestIndex() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	index, err := e.store.LoadIndex()
	if err != nil {
		return 0, err
	}
	if index == 0 {
		return 0, ErrGameNotFound
	}
	return index - 1, nil
}

// QueryLeaderBoard returns the bounded top-K leaderboard, descending by wins.
func (e *Engine) QueryLeaderBoard() ([]LeaderBoardEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.LoadLeaderboard()
}

// CapFractionBps exposes the live pool-cap setting.
func (e *Engine) CapFractionBps() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.capBps
}

// OracleAddress exposes the live trusted oracle identity.
func (e *Engine) OracleAddress() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.oracleAddr
}
