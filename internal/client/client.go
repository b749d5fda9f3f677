// Package client fetches operator console state from the OC API. The
// console is strictly read-only toward the backend: a transport guard
// rejects any non-GET request before it leaves the process, so no code
// path in this repo can mutate governance state.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/chainboard/internal/model"
)

const (
	// DefaultTimeout bounds one section fetch.
	DefaultTimeout = 5 * time.Second
	// DefaultLedgerLimit is how many ledger entries a board fetch pulls.
	DefaultLedgerLimit = 20

	apiPrefix = "/api/v1"
)

// ErrReadOnly is returned by the transport guard for any non-GET request.
var ErrReadOnly = errors.New("client: non-GET request blocked")

// readOnlyTransport enforces the read-only contract at the transport
// layer rather than by convention.
type readOnlyTransport struct {
	next http.RoundTripper
}

func (t readOnlyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return nil, fmt.Errorf("%w: %s %s", ErrReadOnly, req.Method, req.URL.Path)
	}
	return t.next.RoundTrip(req)
}

// ReadOnlyTransport wraps next so any non-GET request fails with
// ErrReadOnly before it leaves the process. A nil next uses
// http.DefaultTransport.
func ReadOnlyTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return readOnlyTransport{next: next}
}

// Client is a GET-only HTTP client for the OC API.
type Client struct {
	base *url.URL
	http *http.Client
}

// New creates a client for the given base URL, e.g. "http://127.0.0.1:8600".
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must include scheme and host", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base: u,
		http: &http.Client{
			Timeout:   timeout,
			Transport: ReadOnlyTransport(nil),
		},
	}, nil
}

type agentsEnvelope struct {
	Agents []model.AgentTile `json:"agents"`
	Total  int               `json:"total"`
}

type decisionsEnvelope struct {
	PDOs []model.PDOCard `json:"pdos"`
	BERs []model.BERCard `json:"bers"`
}

type ledgerEnvelope struct {
	Entries []model.LedgerEntryView `json:"entries"`
}

// Agents fetches the agent lane tiles.
func (c *Client) Agents(ctx context.Context) ([]model.AgentTile, error) {
	var env agentsEnvelope
	if err := c.get(ctx, apiPrefix+"/agents", nil, &env); err != nil {
		return nil, err
	}
	return env.Agents, nil
}

// Decisions fetches the decision stream: PDO cards and BER cards.
func (c *Client) Decisions(ctx context.Context) ([]model.PDOCard, []model.BERCard, error) {
	var env decisionsEnvelope
	if err := c.get(ctx, apiPrefix+"/decisions", nil, &env); err != nil {
		return nil, nil, err
	}
	return env.PDOs, env.BERs, nil
}

// Rail fetches the governance rail.
func (c *Client) Rail(ctx context.Context) (model.GovernanceRail, error) {
	var rail model.GovernanceRail
	if err := c.get(ctx, apiPrefix+"/rail", nil, &rail); err != nil {
		return model.GovernanceRail{}, err
	}
	return rail, nil
}

// KillSwitch fetches the displayed kill-switch state.
func (c *Client) KillSwitch(ctx context.Context) (model.KillSwitchState, error) {
	var ks model.KillSwitchState
	if err := c.get(ctx, apiPrefix+"/killswitch", nil, &ks); err != nil {
		return model.KillSwitchState{}, err
	}
	return ks, nil
}

// Ledger fetches the most recent server ledger entries.
func (c *Client) Ledger(ctx context.Context, limit int) ([]model.LedgerEntryView, error) {
	if limit <= 0 {
		limit = DefaultLedgerLimit
	}
	q := url.Values{"limit": []string{strconv.Itoa(limit)}}
	var env ledgerEnvelope
	if err := c.get(ctx, apiPrefix+"/ledger", q, &env); err != nil {
		return nil, err
	}
	return env.Entries, nil
}

// Board fetches the whole board in one request, for servers that expose
// the composite endpoint.
func (c *Client) Board(ctx context.Context) (model.BoardSnapshot, error) {
	var snap model.BoardSnapshot
	if err := c.get(ctx, apiPrefix+"/board", nil, &snap); err != nil {
		return model.BoardSnapshot{}, err
	}
	return snap, nil
}

// FetchBoard fans out the section fetches concurrently and degrades
// per-section: a failed section is marked unavailable in the snapshot's
// flags while the rest render. The returned error joins the section
// failures for logging; the snapshot is renderable either way.
func (c *Client) FetchBoard(ctx context.Context) (model.BoardSnapshot, error) {
	snap := model.BoardSnapshot{FetchedAt: time.Now().UTC()}

	var g errgroup.Group
	var errAgents, errDecisions, errRail, errSwitch, errLedger error

	g.Go(func() error {
		tiles, err := c.Agents(ctx)
		if err != nil {
			errAgents = err
			return nil
		}
		snap.Agents = tiles
		snap.Available.Agents = true
		return nil
	})
	g.Go(func() error {
		pdos, bers, err := c.Decisions(ctx)
		if err != nil {
			errDecisions = err
			return nil
		}
		snap.PDOs = pdos
		snap.BERs = bers
		snap.Available.Decisions = true
		return nil
	})
	g.Go(func() error {
		rail, err := c.Rail(ctx)
		if err != nil {
			errRail = err
			return nil
		}
		snap.Rail = rail
		snap.Available.Rail = true
		return nil
	})
	g.Go(func() error {
		ks, err := c.KillSwitch(ctx)
		if err != nil {
			errSwitch = err
			return nil
		}
		snap.KillSwitch = ks
		snap.Available.KillSwitch = true
		return nil
	})
	g.Go(func() error {
		entries, err := c.Ledger(ctx, DefaultLedgerLimit)
		if err != nil {
			errLedger = err
			return nil
		}
		snap.Ledger = entries
		snap.Available.Ledger = true
		return nil
	})

	_ = g.Wait() // section errors are collected, never propagated through the group
	model.SortTiles(snap.Agents)
	return snap, errors.Join(errAgents, errDecisions, errRail, errSwitch, errLedger)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}
