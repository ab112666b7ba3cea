// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/database"

	"github.com/ava-labs/sequencervm/storage"
)

var _ Runtime = (*Native)(nil)

// Native runs kernels in process against a durable tree and an in-memory
// inbox. It is not safe for concurrent use.
type Native struct {
	tree   storage.Tree
	inputs []*Message
	log    log.Logger
}

func NewNative(tree storage.Tree) *Native {
	return &Native{
		tree: tree,
		log:  log.New("module", "host"),
	}
}

// AddMessage queues [msg] for the next ReadInput.
func (n *Native) AddMessage(msg *Message) {
	n.inputs = append(n.inputs, msg)
}

// Pending returns the number of queued messages.
func (n *Native) Pending() int {
	return len(n.inputs)
}

// DropInputs discards messages a kernel left unread.
func (n *Native) DropInputs() {
	n.inputs = nil
}

func (n *Native) ReadInput() (*Message, error) {
	if len(n.inputs) == 0 {
		return nil, nil
	}
	msg := n.inputs[0]
	n.inputs[0] = nil
	n.inputs = n.inputs[1:]
	return msg, nil
}

func (*Native) WriteOutput([]byte) error {
	return fmt.Errorf("%w: write_output", ErrUnsupported)
}

func (n *Native) WriteDebug(msg string) {
	n.log.Debug("kernel debug", "msg", msg)
}

func (n *Native) StoreHas(path string) (ValueType, error) {
	node, err := n.readNode(path)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return ValueNone, nil
	case err != nil:
		return ValueNone, err
	}
	hasChildren := len(node.Children) > 0
	switch {
	case node.HasValue && hasChildren:
		return ValueWithSubtree, nil
	case node.HasValue:
		return ValueOnly, nil
	case hasChildren:
		return Subtree, nil
	default:
		return ValueNone, nil
	}
}

func (n *Native) StoreRead(path string, offset, maxBytes int) ([]byte, error) {
	value, err := n.read(path)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, ErrPathNotFound
	}
	if offset < 0 || maxBytes < 0 {
		return nil, ErrInvalidAccess
	}
	if offset > len(value) {
		offset = len(value)
	}
	data := value[offset:]
	if len(data) > maxBytes {
		data = data[:maxBytes]
	}
	return append([]byte{}, data...), nil
}

func (n *Native) StoreReadSlice(path string, offset int, buf []byte) (int, error) {
	value, err := n.read(path)
	if err != nil || value == nil {
		return 0, err
	}
	if offset < 0 {
		return 0, ErrInvalidAccess
	}
	if offset > len(value) {
		return 0, nil
	}
	return copy(buf, value[offset:]), nil
}

// StoreWrite replaces the value at [path] with src[offset:]. The offset
// selects the part of [src] to store, it is not a position in the
// existing value.
func (n *Native) StoreWrite(path string, src []byte, offset int) error {
	if err := validateKey(path); err != nil {
		return err
	}
	if len(src) > math.MaxInt32 {
		return ErrValueSizeExceeded
	}
	if offset < 0 {
		return ErrInvalidAccess
	}
	if offset > len(src) {
		offset = len(src)
	}
	if err := n.tree.Write(path, src[offset:]); err != nil {
		return accessError(err)
	}
	return nil
}

func (n *Native) StoreDelete(path string) error {
	if err := validateKey(path); err != nil {
		return err
	}
	if err := n.tree.Delete(path); err != nil {
		return accessError(err)
	}
	return nil
}

func (n *Native) StoreCountSubkeys(path string) (uint64, error) {
	node, err := n.readNode(path)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return 0, ErrNotANode
	case err != nil:
		return 0, err
	}
	return uint64(len(node.Children)), nil
}

func (n *Native) StoreMove(from, to string) error {
	if err := validateKey(from); err != nil {
		return err
	}
	if err := validateKey(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if storage.IsWithin(to, from) {
		return fmt.Errorf("%w: cannot move %q into itself", ErrInvalidAccess, from)
	}
	if err := n.StoreCopy(from, to); err != nil {
		return err
	}
	if storage.IsWithin(from, to) {
		// the copy already replaced the subtree holding the source
		return nil
	}
	return n.StoreDelete(from)
}

func (n *Native) StoreCopy(from, to string) error {
	if err := validateKey(from); err != nil {
		return err
	}
	if err := validateKey(to); err != nil {
		return err
	}
	if err := n.tree.Copy(from, to); err != nil {
		return accessError(err)
	}
	return nil
}

func (n *Native) StoreValueSize(path string) (int, error) {
	value, err := n.read(path)
	if err != nil {
		return 0, err
	}
	return len(value), nil
}

func (*Native) RevealPreimage([]byte, []byte) (int, error) {
	return 0, fmt.Errorf("%w: reveal_preimage", ErrUnsupported)
}

func (*Native) RevealMetadata() (*Metadata, error) {
	return nil, fmt.Errorf("%w: reveal_metadata", ErrUnsupported)
}

// MarkForReboot is accepted and ignored: every operation gets a fresh
// kernel invocation.
func (*Native) MarkForReboot() error { return nil }

func (*Native) RebootLeft() (uint32, error) { return RebootLimit, nil }

func (*Native) RuntimeVersion() (string, error) {
	return "", fmt.Errorf("%w: runtime_version", ErrUnsupported)
}

func (*Native) LastRunAborted() (bool, error) {
	return false, fmt.Errorf("%w: last_run_aborted", ErrUnsupported)
}

func (*Native) UpgradeFailed() (bool, error) {
	return false, fmt.Errorf("%w: upgrade_failed", ErrUnsupported)
}

func (*Native) RestartForced() (bool, error) {
	return false, fmt.Errorf("%w: restart_forced", ErrUnsupported)
}

// read returns nil without error when [path] holds no value.
func (n *Native) read(path string) ([]byte, error) {
	if err := validateKey(path); err != nil {
		return nil, err
	}
	value, err := n.tree.Read(path)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, accessError(err)
	}
	return value, nil
}

func (n *Native) readNode(path string) (*storage.TreeNode, error) {
	if err := validateKey(path); err != nil {
		return nil, err
	}
	node, err := n.tree.ReadNode(path)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, err
	case err != nil:
		return nil, accessError(err)
	}
	return node, nil
}

func validateKey(path string) error {
	if !utf8.ValidString(path) {
		return fmt.Errorf("%w: not valid utf-8", ErrInvalidKey)
	}
	if err := storage.ValidatePath(path); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return nil
}

func accessError(err error) error {
	if errors.Is(err, storage.ErrInvalidPath) {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return fmt.Errorf("%w: %v", ErrInvalidAccess, err)
}
