package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/slexs/whale-of-fortune/pkg/kvstore"
)

const (
	gameKeyPrefix    = "game:"
	historyKeyPrefix = "player_history:"
	leaderboardKey   = "leaderboard"
	indexKey         = "game_idx"
	oracleAddrKey    = "config:oracle_address"
	capBpsKey        = "config:cap_bps"
)

// Store persists games, player histories, the leaderboard and the game index
// counter in a key-value store. Multi-record mutations go through Commit so
// one settlement hits disk all-or-nothing.
type Store struct {
	kv kvstore.KVStore
}

func NewStore(kv kvstore.KVStore) *Store {
	return &Store{kv: kv}
}

func gameKey(index uint64) string {
	// Zero-padded so lexicographic range scans follow index order.
	return fmt.Sprintf("%s%020d", gameKeyPrefix, index)
}

func historyKey(player string) string {
	return historyKeyPrefix + player
}

func (s *Store) LoadGame(index uint64) (*Game, error) {
	data, err := s.kv.Get(gameKey(index))
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: index %d", ErrGameNotFound, index)
		}
		return nil, fmt.Errorf("load game %d: %w", index, err)
	}

	var game Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("unmarshal game %d: %w", index, err)
	}
	return &game, nil
}

// LoadIndex returns the next open game index.
func (s *Store) LoadIndex() (uint64, error) {
	data, err := s.kv.Get(indexKey)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnableToLoadIndex, err)
	}
	idx, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnableToLoadIndex, err)
	}
	return idx, nil
}

// InitIndex seeds the counter at zero on first boot.
func (s *Store) InitIndex() error {
	_, err := s.kv.Get(indexKey)
	if err == nil {
		return nil
	}
	if !errors.Is(err, kvstore.ErrKeyNotFound) {
		return err
	}
	return s.kv.Set(indexKey, []byte("0"))
}

// LoadHistory returns the player's history and whether it already existed.
func (s *Store) LoadHistory(player string) (*PlayerHistory, bool, error) {
	data, err := s.kv.Get(historyKey(player))
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return &PlayerHistory{Player: player}, false, nil
		}
		return nil, false, fmt.Errorf("load player history %s: %w", player, err)
	}

	var history PlayerHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, false, fmt.Errorf("unmarshal player history %s: %w", player, err)
	}
	return &history, true, nil
}

func (s *Store) LoadLeaderboard() ([]LeaderBoardEntry, error) {
	data, err := s.kv.Get(leaderboardKey)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return []LeaderBoardEntry{}, nil
		}
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	var board []LeaderBoardEntry
	if err := json.Unmarshal(data, &board); err != nil {
		return nil, fmt.Errorf("unmarshal leaderboard: %w", err)
	}
	return board, nil
}

func (s *Store) LoadOracleAddress() (string, bool, error) {
	data, err := s.kv.Get(oracleAddrKey)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func (s *Store) LoadCapBps() (uint64, bool, error) {
	data, err := s.kv.Get(capBpsKey)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	bps, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, false, err
	}
	return bps, true, nil
}

func (s *Store) SaveOracleAddress(addr string) error {
	return s.kv.Set(oracleAddrKey, []byte(addr))
}

func (s *Store) SaveCapBps(bps uint64) error {
	return s.kv.Set(capBpsKey, []byte(strconv.FormatUint(bps, 10)))
}

// mutation accumulates the writes of one engine operation.
type mutation struct {
	entries map[string][]byte
	err     error
}

func newMutation() *mutation {
	return &mutation{entries: make(map[string][]byte)}
}

func (m *mutation) putJSON(key string, v any) {
	if m.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		m.err = fmt.Errorf("marshal %s: %w", key, err)
		return
	}
	m.entries[key] = data
}

func (m *mutation) SetGame(game *Game) {
	m.putJSON(gameKey(game.Index), game)
}

func (m *mutation) SetHistory(history *PlayerHistory) {
	m.putJSON(historyKey(history.Player), history)
}

func (m *mutation) SetLeaderboard(board []LeaderBoardEntry) {
	m.putJSON(leaderboardKey, board)
}

func (m *mutation) SetIndex(index uint64) {
	if m.err != nil {
		return
	}
	m.entries[indexKey] = []byte(strconv.FormatUint(index, 10))
}

// Commit writes every accumulated entry in one atomic batch.
func (s *Store) Commit(m *mutation) error {
	if m.err != nil {
		return m.err
	}
	return s.kv.SetMulti(m.entries)
}
