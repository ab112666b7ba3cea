// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"errors"
	"fmt"
)

// Inbox framing tags.
const (
	InternalTag byte = 0x00
	ExternalTag byte = 0x01

	StartOfLevelTag byte = 0x01
	EndOfLevelTag   byte = 0x02
	InfoPerLevelTag byte = 0x03
)

var ErrInvalidMessageFormat = errors.New("invalid message format")

// Message is an inbox message queued for a kernel.
type Message struct {
	Level   uint32
	ID      uint32
	Payload []byte
}

func (m *Message) String() string {
	return fmt.Sprintf("message(level=%d, id=%d, len=%d)", m.Level, m.ID, len(m.Payload))
}

// External frames a client operation.
func External(level, id uint32, op []byte) *Message {
	payload := make([]byte, 1+len(op))
	payload[0] = ExternalTag
	copy(payload[1:], op)
	return &Message{Level: level, ID: id, Payload: payload}
}

// StartOfLevel opens [level].
func StartOfLevel(level uint32) *Message {
	return &Message{Level: level, ID: 0, Payload: []byte{InternalTag, StartOfLevelTag}}
}

// EndOfLevel closes [level]; [id] is the number of slots used in it.
func EndOfLevel(level, id uint32) *Message {
	return &Message{Level: level, ID: id, Payload: []byte{InternalTag, EndOfLevelTag}}
}

// ExternalPayload returns the operation framed in [m].
func (m *Message) ExternalPayload() ([]byte, error) {
	if len(m.Payload) == 0 || m.Payload[0] != ExternalTag {
		return nil, ErrInvalidMessageFormat
	}
	return m.Payload[1:], nil
}

// IsInternal reports whether [m] is an internal message with [tag].
func (m *Message) IsInternal(tag byte) bool {
	return len(m.Payload) >= 2 && m.Payload[0] == InternalTag && m.Payload[1] == tag
}
