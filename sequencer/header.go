// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sequencer

import (
	"context"
	"fmt"
)

// Header is a canonical block header announced by the layer 1 node.
type Header struct {
	Hash        string `json:"hash"`
	Level       uint32 `json:"level"`
	Predecessor string `json:"predecessor"`
}

func (h *Header) String() string {
	return fmt.Sprintf("header(level=%d, hash=%s)", h.Level, h.Hash)
}

// HeaderWatcher streams new headers into [headers] until [ctx] is done or
// the feed fails for good.
type HeaderWatcher interface {
	Watch(ctx context.Context, headers chan<- *Header) error
}
