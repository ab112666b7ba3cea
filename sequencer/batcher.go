// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sequencer

import (
	"github.com/ava-labs/sequencervm/host"
)

// markerSlots is the number of inbox slots taken by the start-of-level
// message when level markers are emitted.
const markerSlots = 1

// Batcher frames operations into inbox messages of the current level and
// accumulates them until the next level boundary.
type Batcher struct {
	level     uint32
	firstSlot uint32
	batch     [][]byte
}

type BatcherOption func(*Batcher)

// WithReservedMarkerSlots makes operation indices start after the level
// marker slots.
func WithReservedMarkerSlots() BatcherOption {
	return func(b *Batcher) {
		b.firstSlot = markerSlots
	}
}

// NewBatcher starts batching at [level].
func NewBatcher(level uint32, opts ...BatcherOption) *Batcher {
	b := &Batcher{level: level}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OnOperation records [op] and returns the message to hand to the kernel.
func (b *Batcher) OnOperation(op []byte) *host.Message {
	id := b.firstSlot + uint32(len(b.batch))
	b.batch = append(b.batch, op)
	return host.External(b.level, id, op)
}

// OnHeader moves to the level of [header] and returns the operations
// batched since the previous boundary.
func (b *Batcher) OnHeader(header *Header) [][]byte {
	batch := b.batch
	b.level = header.Level
	b.batch = nil
	return batch
}

// Level is the level new operations are framed with.
func (b *Batcher) Level() uint32 { return b.level }

// Len is the number of operations waiting for the next boundary.
func (b *Batcher) Len() int { return len(b.batch) }

// NextSlot is the index the next operation will get.
func (b *Batcher) NextSlot() uint32 { return b.firstSlot + uint32(len(b.batch)) }
