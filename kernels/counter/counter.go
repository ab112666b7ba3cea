// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package counter is a sample kernel counting increment operations.
package counter

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/utils/wrappers"

	"github.com/ava-labs/sequencervm/host"
)

// Path holds the counter as a big-endian uint64.
const Path = "/counter"

// IncrementOp is the operation byte that bumps the counter.
const IncrementOp byte = 0x88

var _ host.Kernel = (*Kernel)(nil)

// Kernel increments [Path] once for every external message whose operation
// starts with IncrementOp. Other messages are consumed and ignored.
type Kernel struct{}

func (Kernel) Entry(rt host.Runtime) error {
	for {
		msg, err := rt.ReadInput()
		if err != nil {
			return err
		}
		if msg == nil {
			return nil
		}
		if len(msg.Payload) < 2 || msg.Payload[0] != host.ExternalTag || msg.Payload[1] != IncrementOp {
			continue
		}

		counter, err := Read(rt)
		if err != nil {
			return err
		}
		if err := write(rt, counter+1); err != nil {
			return err
		}
	}
}

// Read returns the current counter, 0 if it was never written.
func Read(rt host.Runtime) (uint64, error) {
	raw, err := rt.StoreRead(Path, 0, wrappers.LongLen)
	switch {
	case errors.Is(err, host.ErrPathNotFound):
		return 0, nil
	case err != nil:
		return 0, err
	}
	return Decode(raw)
}

func write(rt host.Runtime, counter uint64) error {
	raw := make([]byte, wrappers.LongLen)
	binary.BigEndian.PutUint64(raw, counter)
	return rt.StoreWrite(Path, raw, 0)
}

// Decode parses a stored counter value.
func Decode(raw []byte) (uint64, error) {
	if len(raw) != wrappers.LongLen {
		return 0, fmt.Errorf("malformed counter of %d bytes", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}
