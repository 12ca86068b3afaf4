package engine

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// callbackToken correlates an entropy request with its eventual fulfillment.
// It rides opaquely through the oracle and comes back untouched.
type callbackToken struct {
	Game           uint64 `json:"game"`
	OriginalSender string `json:"original_sender"`
}

func encodeToken(t callbackToken) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode callback token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decodeToken(raw string) (callbackToken, error) {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return callbackToken{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var t callbackToken
	if err := json.Unmarshal(data, &t); err != nil {
		return callbackToken{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return t, nil
}
