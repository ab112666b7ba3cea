// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package host defines the interface a kernel is run against and a native
// implementation backed by the durable tree.
package host

import "errors"

// RebootLimit is the reboot allowance reported to kernels.
const RebootLimit uint32 = 1000

var (
	ErrInvalidKey        = errors.New("invalid key")
	ErrPathNotFound      = errors.New("path not found")
	ErrValueSizeExceeded = errors.New("value size exceeded")
	ErrInvalidAccess     = errors.New("invalid access")
	ErrNotANode          = errors.New("not a node")
	ErrUnsupported       = errors.New("unsupported host capability")
)

// ValueType describes what lives at a path.
type ValueType byte

const (
	ValueNone ValueType = iota
	ValueOnly
	Subtree
	ValueWithSubtree
)

func (v ValueType) String() string {
	switch v {
	case ValueNone:
		return "none"
	case ValueOnly:
		return "value"
	case Subtree:
		return "subtree"
	case ValueWithSubtree:
		return "value+subtree"
	default:
		return "unknown"
	}
}

// Metadata identifies the rollup a kernel runs for.
type Metadata struct {
	RollupAddress []byte
	OriginLevel   uint32
}

// Runtime is the set of host functions available to a kernel.
type Runtime interface {
	// ReadInput pops the oldest pending message, nil if there is none.
	ReadInput() (*Message, error)
	WriteOutput(output []byte) error
	WriteDebug(msg string)

	StoreHas(path string) (ValueType, error)
	StoreRead(path string, offset, maxBytes int) ([]byte, error)
	StoreReadSlice(path string, offset int, buf []byte) (int, error)
	StoreWrite(path string, src []byte, offset int) error
	StoreDelete(path string) error
	StoreCountSubkeys(path string) (uint64, error)
	StoreMove(from, to string) error
	StoreCopy(from, to string) error
	StoreValueSize(path string) (int, error)

	RevealPreimage(hash []byte, dst []byte) (int, error)
	RevealMetadata() (*Metadata, error)

	MarkForReboot() error
	RebootLeft() (uint32, error)
	RuntimeVersion() (string, error)
	LastRunAborted() (bool, error)
	UpgradeFailed() (bool, error)
	RestartForced() (bool, error)
}

// Kernel is the state-transition function driven by the sequencer.
type Kernel interface {
	Entry(rt Runtime) error
}

// KernelFunc adapts a function to the Kernel interface.
type KernelFunc func(rt Runtime) error

func (f KernelFunc) Entry(rt Runtime) error { return f(rt) }
