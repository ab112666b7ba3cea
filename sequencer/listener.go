// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sequencer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/inconshreveable/log15"
)

// HeadsPath is the layer 1 endpoint streaming canonical heads.
const HeadsPath = "/monitor/heads/main"

const defaultReconnectDelay = time.Second

var _ HeaderWatcher = (*TezosListener)(nil)

// TezosListener follows the heads stream of a Tezos node. The stream is
// a sequence of JSON objects; undecodable items are skipped and a dropped
// connection is reopened after a delay.
type TezosListener struct {
	uri            string
	client         *http.Client
	reconnectDelay time.Duration
	log            log.Logger
}

func NewTezosListener(uri string) *TezosListener {
	return &TezosListener{
		uri:            strings.TrimSuffix(uri, "/"),
		client:         &http.Client{},
		reconnectDelay: defaultReconnectDelay,
		log:            log.New("module", "listener"),
	}
}

// WithReconnectDelay sets the pause between two connection attempts.
func (l *TezosListener) WithReconnectDelay(delay time.Duration) *TezosListener {
	l.reconnectDelay = delay
	return l
}

func (l *TezosListener) Watch(ctx context.Context, headers chan<- *Header) error {
	for {
		err := l.stream(ctx, headers)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Warn("heads stream interrupted", "err", err, "retryIn", l.reconnectDelay)

		timer := time.NewTimer(l.reconnectDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (l *TezosListener) stream(ctx context.Context, headers chan<- *Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.uri+HeadsPath, nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	l.log.Info("following heads", "uri", l.uri)
	decoder := json.NewDecoder(resp.Body)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}

		header := &Header{}
		if err := json.Unmarshal(raw, header); err != nil {
			l.log.Debug("skipping malformed head", "err", err)
			continue
		}

		select {
		case headers <- header:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
