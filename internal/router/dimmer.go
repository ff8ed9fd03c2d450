package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/roomcast/internal/infrastructure/config"
)

const (
	// defaultDimmerTimeout bounds a backend request when the configured
	// timeout is missing or invalid.
	defaultDimmerTimeout = 10 * time.Second

	// setLevelPath is the backend endpoint for dim commands.
	setLevelPath = "/dimmer/set_level"
)

// setLevelRequest is the dimmer backend's set_level body. The level
// travels as a string because the backend parses it itself.
type setLevelRequest struct {
	NodeID int    `json:"node_id"`
	Value  string `json:"value"`
}

// Dimmer posts light commands to the dimmer backend over HTTP.
type Dimmer struct {
	baseURL string
	client  *http.Client
}

// NewDimmer creates a dimmer client from configuration.
func NewDimmer(cfg config.DimmerConfig) *Dimmer {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultDimmerTimeout
	}

	return &Dimmer{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// SetLevel posts a dim level for one node to the backend. Any non-2xx
// response is a failure.
func (d *Dimmer) SetLevel(ctx context.Context, node string, percent int) error {
	nodeID, err := strconv.Atoi(node)
	if err != nil {
		return fmt.Errorf("%w: node %q is not numeric", ErrDimmerRequest, node)
	}

	body, err := json.Marshal(setLevelRequest{NodeID: nodeID, Value: strconv.Itoa(percent)})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDimmerRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+setLevelPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDimmerRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDimmerRequest, err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: backend returned %s", ErrDimmerRequest, resp.Status)
	}

	return nil
}
