package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/slexs/whale-of-fortune/internal/engine"
)

// Callback is the oracle's fulfillment message: 64 bytes of entropy plus the
// correlation token from the original request.
type Callback struct {
	Sender    string `json:"sender"`
	Requester string `json:"requester"`
	Entropy   []byte `json:"entropy"`
	Token     string `json:"token"`
}

// Client talks to the randomness oracle over NATS: entropy requests go out on
// the request subject, fulfillments come back on the callback subject.
type Client struct {
	conn            *nats.Conn
	requestSubject  string
	callbackSubject string
}

func NewClient(conn *nats.Conn, requestSubject, callbackSubject string) *Client {
	return &Client{
		conn:            conn,
		requestSubject:  requestSubject,
		callbackSubject: callbackSubject,
	}
}

func (c *Client) RequestEntropy(_ context.Context, req engine.EntropyRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal entropy request: %w", err)
	}
	if err := c.conn.Publish(c.requestSubject, data); err != nil {
		return fmt.Errorf("publish entropy request: %w", err)
	}
	return nil
}

// SubscribeCallbacks delivers each inbound fulfillment to handler. Messages
// that do not decode are dropped; authentication is the engine's job.
func (c *Client) SubscribeCallbacks(handler func(Callback)) (*nats.Subscription, error) {
	return c.conn.Subscribe(c.callbackSubject, func(msg *nats.Msg) {
		var cb Callback
		if err := json.Unmarshal(msg.Data, &cb); err != nil {
			return
		}
		handler(cb)
	})
}
