package engine

import "sort"

// recordWin folds a won game into the player's aggregates.
func recordWin(history *PlayerHistory, betSize, payout, loyaltyThreshold uint64) {
	history.GamesPlayed++
	history.Wins++
	history.TotalWagered += betSize
	history.TotalWon += payout
	grantLoyalty(history, loyaltyThreshold)
}

// recordLoss folds a lost game into the player's aggregates.
func recordLoss(history *PlayerHistory, betSize, loyaltyThreshold uint64) {
	history.GamesPlayed++
	history.Losses++
	history.TotalWagered += betSize
	grantLoyalty(history, loyaltyThreshold)
}

// grantLoyalty adds one free spin on every Nth settled game.
func grantLoyalty(history *PlayerHistory, threshold uint64) {
	if threshold == 0 {
		return
	}
	if history.GamesPlayed%threshold == 0 {
		history.FreeSpins++
	}
}

// mergeLeaderboard adds one win for the player, re-sorts descending and
// truncates to size. The sort is stable, so ties keep their insertion order.
func mergeLeaderboard(board []LeaderBoardEntry, player string, size int) []LeaderBoardEntry {
	found := false
	for i := range board {
		if board[i].Player == player {
			board[i].Wins++
			found = true
			break
		}
	}
	if !found {
		board = append(board, LeaderBoardEntry{Player: player, Wins: 1})
	}

	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Wins > board[j].Wins
	})

	if len(board) > size {
		board = board[:size]
	}
	return board
}
