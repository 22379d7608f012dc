// Package backend reads people, goals and ranked sales from the sales
// backend over HTTP.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/salesboard/internal/domain/model"
	"github.com/okian/salesboard/pkg/logger"
	"github.com/okian/salesboard/pkg/metrics"
)

const (
	defaultTimeout = 5 * time.Second
	maxBodyBytes   = 4 << 20

	pathPeople = "/people"
	pathGoals  = "/goals"
	pathData   = "/data"
)

// Client talks to the sales backend.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  logger.Logger
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
		logger:  logger.Get().Named("backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

// FetchPeople returns the people document keyed by canonical name.
func (c *Client) FetchPeople(ctx context.Context) (map[string]model.PersonRecord, error) {
	body, err := c.get(ctx, pathPeople)
	if err != nil {
		return nil, err
	}
	people := make(map[string]model.PersonRecord)
	if err := json.Unmarshal(body, &people); err != nil {
		return nil, fmt.Errorf("%w: people: %v", ErrParse, err)
	}
	return people, nil
}

// goalWire accepts Target as either a JSON string or a JSON number.
type goalWire struct {
	Name      string          `json:"Goal Name"`
	Start     string          `json:"Start"`
	End       string          `json:"End"`
	Target    json.RawMessage `json:"Target"`
	CreatedBy string          `json:"Created By"`
}

// FetchGoals returns every goal record as served.
func (c *Client) FetchGoals(ctx context.Context) ([]model.GoalRecord, error) {
	body, err := c.get(ctx, pathGoals)
	if err != nil {
		return nil, err
	}
	var wire []goalWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: goals: %v", ErrParse, err)
	}
	out := make([]model.GoalRecord, 0, len(wire))
	for _, g := range wire {
		out = append(out, model.GoalRecord{
			Name:      g.Name,
			Start:     g.Start,
			End:       g.End,
			Target:    rawText(g.Target),
			CreatedBy: g.CreatedBy,
		})
	}
	return out, nil
}

type entryWire struct {
	Name  string          `json:"Name"`
	Sales json.RawMessage `json:"Sales"`
}

// FetchSnapshot returns the ranked sales listing in backend order.
// A body that is not a JSON array yields an empty snapshot; rows without a
// name or with non-numeric sales are dropped.
func (c *Client) FetchSnapshot(ctx context.Context) (model.Snapshot, error) {
	body, err := c.get(ctx, pathData)
	if err != nil {
		return nil, err
	}
	var wire []entryWire
	if err := json.Unmarshal(body, &wire); err != nil {
		metrics.RecordErrorByComponent("backend", "parse")
		c.logger.Warn(ctx, "malformed snapshot ignored", logger.Error(fmt.Errorf("%w: %v", ErrParse, err)))
		return model.Snapshot{}, nil
	}

	snap := make(model.Snapshot, 0, len(wire))
	for i, w := range wire {
		sales, err := parseSales(w.Sales)
		if w.Name == "" || err != nil {
			metrics.RecordErrorByComponent("backend", "parse")
			c.logger.Warn(ctx, "snapshot row dropped",
				logger.Int("index", i),
				logger.String("name", w.Name),
				logger.String("sales", string(w.Sales)),
			)
			continue
		}
		snap = append(snap, model.SalesEntry{Name: w.Name, Sales: sales})
	}
	return snap, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNetwork, path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordErrorByComponent("backend", "network")
		return nil, fmt.Errorf("%w: %s: %w", ErrNetwork, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordErrorByComponent("backend", "network")
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrNetwork, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordErrorByComponent("backend", "status")
		return nil, fmt.Errorf("%w: %s: %d", ErrStatus, path, resp.StatusCode)
	}
	return body, nil
}

// parseSales accepts a JSON number or a numeric JSON string.
func parseSales(raw json.RawMessage) (float64, error) {
	text := rawText(raw)
	if text == "" {
		return 0, fmt.Errorf("%w: empty sales", ErrParse)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: sales %q", ErrParse, text)
	}
	return v, nil
}

// rawText unquotes a JSON string and returns any other token verbatim.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(raw)
}
