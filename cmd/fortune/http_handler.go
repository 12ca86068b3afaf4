package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/slexs/whale-of-fortune/internal/engine"
	"github.com/slexs/whale-of-fortune/internal/oracle"
	"github.com/slexs/whale-of-fortune/internal/wheel"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

type APIErrorResponse struct {
	Status    string    `json:"status"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

type PlaceBetRequest struct {
	Player     string        `json:"player"`
	BetSegment uint8         `json:"bet_segment"`
	BetSize    uint64        `json:"bet_size"`
	Funds      []engine.Coin `json:"funds"`
}

type PlaceFreeBetRequest struct {
	Player     string `json:"player"`
	BetSegment uint8  `json:"bet_segment"`
}

type AdminOracleRequest struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
}

type AdminCapRequest struct {
	Caller string `json:"caller"`
	Bps    uint64 `json:"bps"`
}

type AdminExpireRequest struct {
	Caller string `json:"caller"`
}

type LatestIndexResponse struct {
	LatestIndex uint64 `json:"latest_index"`
}

type EngineHTTPHandler struct {
	version string
	engine  *engine.Engine
}

func NewEngineHTTPHandler(version string, eng *engine.Engine) *EngineHTTPHandler {
	return &EngineHTTPHandler{version: version, engine: eng}
}

func (h *EngineHTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/bets", h.HandlePlaceBet)
	mux.HandleFunc("/bets/free", h.HandlePlaceFreeBet)
	mux.HandleFunc("/callbacks/entropy", h.HandleEntropyCallback)
	mux.HandleFunc("/games/", h.HandleGame)
	mux.HandleFunc("/players/", h.HandlePlayerHistory)
	mux.HandleFunc("/leaderboard", h.HandleLeaderBoard)
	mux.HandleFunc("/index/latest", h.HandleLatestIndex)
	mux.HandleFunc("/admin/oracle-address", h.HandleSetOracleAddress)
	mux.HandleFunc("/admin/cap-fraction", h.HandleSetCapFraction)
	mux.HandleFunc("/admin/expire/", h.HandleExpireGame)
}

func (h *EngineHTTPHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	})
}

func (h *EngineHTTPHandler) HandlePlaceBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, err := h.engine.PlaceBet(r.Context(), req.Player, req.BetSegment, req.BetSize, req.Funds)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

func (h *EngineHTTPHandler) HandlePlaceFreeBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req PlaceFreeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, err := h.engine.PlaceFreeBet(r.Context(), req.Player, req.BetSegment)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

// HandleEntropyCallback is the HTTP delivery path for oracle fulfillments.
// Authentication happens inside the engine, same as for NATS callbacks.
func (h *EngineHTTPHandler) HandleEntropyCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var cb oracle.Callback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.engine.FulfillRandomness(cb.Sender, cb.Requester, cb.Entropy, cb.Token)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *EngineHTTPHandler) HandleGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	index, err := strconv.ParseUint(strings.TrimPrefix(r.URL.Path, "/games/"), 10, 64)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid game index")
		return
	}

	game, err := h.engine.QueryGame(index)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

func (h *EngineHTTPHandler) HandlePlayerHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	player := strings.TrimPrefix(r.URL.Path, "/players/")
	if player == "" {
		writeErrorJSON(w, http.StatusBadRequest, "missing player identity")
		return
	}

	history, err := h.engine.QueryPlayerHistory(player)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *EngineHTTPHandler) HandleLeaderBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	board, err := h.engine.QueryLeaderBoard()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *EngineHTTPHandler) HandleLatestIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	latest, err := h.engine.QueryLatestIndex()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LatestIndexResponse{LatestIndex: latest})
}

func (h *EngineHTTPHandler) HandleSetOracleAddress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req AdminOracleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.engine.AdminSetOracleAddress(req.Caller, req.Address); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *EngineHTTPHandler) HandleSetCapFraction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req AdminCapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.engine.AdminSetCapFraction(req.Caller, req.Bps); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *EngineHTTPHandler) HandleExpireGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	index, err := strconv.ParseUint(strings.TrimPrefix(r.URL.Path, "/admin/expire/"), 10, 64)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid game index")
		return
	}

	var req AdminExpireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, err := h.engine.AdminExpireGame(req.Caller, index)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// writeEngineError maps engine sentinel errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrGameNotFound):
		writeErrorJSON(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrUnauthorized),
		errors.Is(err, engine.ErrUnauthorizedCallbackSender),
		errors.Is(err, engine.ErrUntrustedRequester):
		writeErrorJSON(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrGameAlreadySettled):
		writeErrorJSON(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrInvalidBetSegment),
		errors.Is(err, engine.ErrMultipleCurrenciesSent),
		errors.Is(err, engine.ErrCurrencyMismatch),
		errors.Is(err, engine.ErrZeroBet),
		errors.Is(err, engine.ErrBetExceedsPoolCap),
		errors.Is(err, engine.ErrAmountMismatch),
		errors.Is(err, engine.ErrNoFreeSpinsRemaining),
		errors.Is(err, engine.ErrInvalidToken),
		errors.Is(err, wheel.ErrInvalidEntropyLength):
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
	default:
		writeErrorJSON(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIErrorResponse{
		Status:    "error",
		Error:     msg,
		Timestamp: time.Now().UTC(),
	})
}
