package disburse

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/slexs/whale-of-fortune/internal/engine"
)

// PayoutEvent wraps one disbursement instruction for the payout channel.
type PayoutEvent struct {
	Type      string              `json:"type"`
	Data      engine.Disbursement `json:"data"`
	Timestamp int64               `json:"timestamp"`
}

// Emitter publishes disbursement instructions. The host executing payouts
// consumes the subject; the engine never moves funds itself.
type Emitter struct {
	conn    *nats.Conn
	subject string
}

func NewEmitter(conn *nats.Conn, subject string) *Emitter {
	return &Emitter{conn: conn, subject: subject}
}

func (e *Emitter) Disburse(d engine.Disbursement) error {
	event := PayoutEvent{
		Type:      "disbursement",
		Data:      d,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal disbursement: %w", err)
	}
	return e.conn.Publish(e.subject, data)
}
