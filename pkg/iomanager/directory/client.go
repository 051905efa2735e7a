// Package directory implements the connectivity-directory client that
// publishes, retracts, and resolves endpoint addresses over HTTP+JSON: a
// background goroutine republishes every registered connection once per
// interval; publish calls add to a local registration set immediately and
// let the goroutine flush it, while retract calls remove from the set and
// post /retract at once.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eser/iomanager/pkg/ajan/httpclient"
	"github.com/eser/iomanager/pkg/ajan/processfx"
	"github.com/eser/iomanager/pkg/iomanager/connid"
	"github.com/eser/iomanager/pkg/iomanager/network"
)

var ErrPartitionRequired = errors.New("directory: partition is required")

var _ network.Resolver = (*Client)(nil)

// Registration is the wire shape for /publish.
type Registration struct {
	UID          string `json:"uid"`
	DataType     string `json:"data_type"`
	URI          string `json:"uri"`
	Kind         string `json:"connection_type"`
	RegisteredAt string `json:"registered_at,omitempty"`
}

// Request is the wire shape for /getconnection/<session>.
type Request struct {
	UIDRegex string `json:"uid_regex"`
	DataType string `json:"data_type"`
}

// Info is one entry of a /getconnection response.
type Info struct {
	UID      string `json:"uid"`
	DataType string `json:"data_type"`
	URI      string `json:"uri"`
	Kind     string `json:"connection_type"`
}

// Client is the directory client: one HTTP round-trip per Resolve call, a
// background goroutine that republishes every registered connection once
// per PublishInterval.
type Client struct {
	baseURL   string
	partition string
	session   string
	http      *httpclient.Client
	logger    *slog.Logger

	mu         sync.Mutex
	registered map[string]Registration

	connected atomic.Bool

	process *processfx.Process
}

// NewClient constructs a Client and starts its publish thread. partition
// must be non-empty — it scopes every directory lookup and registration
// this client makes.
func NewClient(
	ctx context.Context,
	baseURL, partition, session string,
	publishInterval time.Duration,
	logger *slog.Logger,
) (*Client, error) {
	if partition == "" {
		return nil, ErrPartitionRequired
	}

	if logger == nil {
		logger = slog.Default()
	}

	if publishInterval <= 0 {
		publishInterval = time.Second
	}

	c := &Client{ //nolint:exhaustruct
		baseURL:    baseURL,
		partition:  partition,
		session:    session,
		http:       httpclient.NewClient(),
		logger:     logger,
		registered: make(map[string]Registration),
		process:    processfx.New(ctx, nil),
	}
	c.connected.Store(true)

	c.process.StartGoroutine("directory-publish", func(goCtx context.Context) error {
		ticker := time.NewTicker(publishInterval)
		defer ticker.Stop()

		for {
			select {
			case <-goCtx.Done():
				return nil //nolint:nilerr
			case <-ticker.C:
				c.flush(goCtx)
			}
		}
	})

	return c, nil
}

// Publish registers cfg for the next flush tick and returns immediately;
// the background goroutine republishes it on its own schedule.
func (c *Client) Publish(_ context.Context, cfg connid.ConnectionConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registered[cfg.ID.CacheKey()] = Registration{
		UID:          cfg.ID.UID,
		DataType:     cfg.ID.DataType,
		URI:          cfg.URI,
		Kind:         cfg.Kind.String(),
		RegisteredAt: "",
	}

	return nil
}

// Retract removes id from the registration set and issues an immediate
// /retract call.
func (c *Client) Retract(ctx context.Context, id connid.ConnectionId) error {
	c.mu.Lock()
	delete(c.registered, id.CacheKey())
	c.mu.Unlock()

	body := map[string]any{
		"partition": c.partition,
		"connections": []map[string]string{
			{"connection_id": id.UID, "data_type": id.DataType},
		},
	}

	if err := c.post(ctx, "/retract", body); err != nil {
		return fmt.Errorf("%w: %w", connid.ErrRetractFailed, err)
	}

	return nil
}

// Close retracts every registered connection and stops the publish thread.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	ids := make([]map[string]string, 0, len(c.registered))

	for _, reg := range c.registered {
		ids = append(ids, map[string]string{"connection_id": reg.UID, "data_type": reg.DataType})
	}

	c.registered = make(map[string]Registration)
	c.mu.Unlock()

	c.process.Cancel()
	c.process.Shutdown()

	if len(ids) == 0 {
		return nil
	}

	body := map[string]any{"partition": c.partition, "connections": ids}
	if err := c.post(ctx, "/retract", body); err != nil {
		return fmt.Errorf("%w: %w", connid.ErrRetractFailed, err)
	}

	return nil
}

// Resolve asks the directory server for every connection matching id.
func (c *Client) Resolve(ctx context.Context, id connid.ConnectionId) ([]connid.ConnectionConfig, error) {
	req := Request{UIDRegex: id.UID, DataType: id.DataType}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", connid.ErrLookupFailed, err)
	}

	session := id.Session
	if session == "" {
		session = c.session
	}

	url := fmt.Sprintf("%s/getconnection/%s", c.baseURL, c.partition)
	if session != "" {
		url = fmt.Sprintf("%s/getconnection/%s/%s", c.baseURL, c.partition, session)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", connid.ErrLookupFailed, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", connid.ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w (status=%d)", connid.ErrLookupFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", connid.ErrLookupFailed, err)
	}

	var infos []Info

	if err := json.Unmarshal(data, &infos); err != nil {
		return nil, fmt.Errorf("%w: %w", connid.ErrLookupFailed, err)
	}

	out := make([]connid.ConnectionConfig, 0, len(infos))

	for _, info := range infos {
		kind, err := connid.ParseConnectionKind(info.Kind)
		if err != nil {
			continue
		}

		out = append(out, connid.ConnectionConfig{
			ID:   connid.NewConnectionId(info.UID, info.DataType, session),
			URI:  info.URI,
			Kind: kind,
		})
	}

	return out, nil
}

// IsConnected reports whether the last /publish tick reached the server.
// Before the first tick it reports true (optimistic: nothing has failed
// yet).
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

func (c *Client) flush(ctx context.Context) {
	c.mu.Lock()
	regs := make([]Registration, 0, len(c.registered))
	for _, reg := range c.registered {
		regs = append(regs, reg)
	}
	c.mu.Unlock()

	if len(regs) == 0 {
		return
	}

	body := map[string]any{"partition": c.partition, "connections": regs}

	if err := c.post(ctx, "/publish", body); err != nil {
		c.connected.Store(false)
		c.logger.WarnContext(ctx, "directory publish failed", slog.Any("error", err))

		return
	}

	c.connected.Store(true)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("directory: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("directory: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("directory: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory: %s returned status %d", path, resp.StatusCode)
	}

	return nil
}
