package treasury

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
)

const defaultTimeout = 5 * time.Second

// Client queries the liquidity-pool balance service over NATS request/reply.
type Client struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
}

type balanceRequest struct {
	Denom string `json:"denom"`
}

type balanceResponse struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"` // decimal string in base units
}

func NewClient(conn *nats.Conn, subject string) *Client {
	return &Client{
		conn:    conn,
		subject: subject,
		timeout: defaultTimeout,
	}
}

// PoolBalance returns the pool balance for denom in whole base units.
func (c *Client) PoolBalance(ctx context.Context, denom string) (uint64, error) {
	payload, err := json.Marshal(balanceRequest{Denom: denom})
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.conn.RequestWithContext(ctx, c.subject, payload)
	if err != nil {
		return 0, fmt.Errorf("treasury request: %w", err)
	}

	var resp balanceResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return 0, fmt.Errorf("treasury response: %w", err)
	}
	if resp.Denom != denom {
		return 0, fmt.Errorf("treasury replied for denom %q, asked for %q", resp.Denom, denom)
	}

	return parseAmount(resp.Amount)
}

// parseAmount floors a decimal balance string to whole base units.
func parseAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("treasury amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("treasury amount %q is negative", s)
	}
	units := d.Floor().BigInt()
	if !units.IsUint64() {
		return 0, fmt.Errorf("treasury amount %q exceeds uint64", s)
	}
	return units.Uint64(), nil
}
