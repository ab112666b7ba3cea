// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sequencer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// InjectionPath is the rollup node endpoint accepting batches.
const InjectionPath = "/local/batcher/injection"

var (
	ErrInjectionFailed = errors.New("injection failed")

	_ Injector = (*RollupInjector)(nil)
)

// Injector delivers a flushed batch to the rollup node.
type Injector interface {
	Inject(ctx context.Context, batch [][]byte) error
}

// RollupInjector posts batches as a JSON array of hex strings. Failed
// batches are not retried.
type RollupInjector struct {
	uri    string
	client *http.Client
}

func NewRollupInjector(uri string, timeout time.Duration) *RollupInjector {
	return &RollupInjector{
		uri:    strings.TrimSuffix(uri, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

func (r *RollupInjector) Inject(ctx context.Context, batch [][]byte) error {
	if len(batch) == 0 {
		return nil
	}

	encoded := make([]string, len(batch))
	for i, op := range batch {
		encoded[i] = hex.EncodeToString(op)
	}
	body, err := json.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.uri+InjectionPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInjectionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInjectionFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %s", ErrInjectionFailed, resp.Status)
	}
	return nil
}
