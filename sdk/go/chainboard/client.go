package chainboard

import (
	"context"
	"fmt"

	"github.com/ppiankov/chainboard/internal/client"
)

// DefaultBaseURL is used when no WithBaseURL option is given.
const DefaultBaseURL = "http://127.0.0.1:8600"

// Client is a GET-only view over the operator console API. Safe for
// concurrent use.
type Client struct {
	api *client.Client
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := clientConfig{baseURL: DefaultBaseURL}
	for _, o := range opts {
		o(&cfg)
	}

	api, err := client.New(cfg.baseURL, cfg.timeout)
	if err != nil {
		return nil, fmt.Errorf("chainboard: %w", err)
	}
	return &Client{api: api}, nil
}

// Board fetches every section concurrently and degrades per-section: a
// failed section is flagged unavailable while the rest fill in. The
// returned error joins section failures; the board is usable either way.
func (c *Client) Board(ctx context.Context) (Board, error) {
	return c.api.FetchBoard(ctx)
}

// Agents fetches the agent lane tiles.
func (c *Client) Agents(ctx context.Context) ([]Agent, error) {
	return c.api.Agents(ctx)
}

// Decisions fetches the PDO/BER decision stream.
func (c *Client) Decisions(ctx context.Context) ([]PDO, []BER, error) {
	return c.api.Decisions(ctx)
}

// Rail fetches the governance rail.
func (c *Client) Rail(ctx context.Context) (Rail, error) {
	return c.api.Rail(ctx)
}

// KillSwitch fetches the server-reported kill-switch section.
func (c *Client) KillSwitch(ctx context.Context) (KillSwitch, error) {
	return c.api.KillSwitch(ctx)
}

// Ledger fetches the last limit server ledger entries. Zero limit uses
// the server's default window.
func (c *Client) Ledger(ctx context.Context, limit int) ([]LedgerEntry, error) {
	return c.api.Ledger(ctx, limit)
}
