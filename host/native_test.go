// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/avalanchego/database/memdb"

	"github.com/ava-labs/sequencervm/storage"
)

func newTestNative(t *testing.T) *Native {
	t.Helper()
	state, err := storage.NewState(memdb.New(), prometheus.NewRegistry())
	require.NoError(t, err)
	return NewNative(state)
}

func TestReadInputFIFO(t *testing.T) {
	require := require.New(t)
	rt := newTestNative(t)

	msg, err := rt.ReadInput()
	require.NoError(err)
	require.Nil(msg)

	rt.AddMessage(External(1, 0, []byte{0xaa}))
	rt.AddMessage(External(1, 1, []byte{0xbb}))
	require.Equal(2, rt.Pending())

	msg, err = rt.ReadInput()
	require.NoError(err)
	require.Equal(uint32(0), msg.ID)
	require.Equal([]byte{ExternalTag, 0xaa}, msg.Payload)

	msg, err = rt.ReadInput()
	require.NoError(err)
	require.Equal(uint32(1), msg.ID)

	msg, err = rt.ReadInput()
	require.NoError(err)
	require.Nil(msg)
}

func TestStoreHas(t *testing.T) {
	require := require.New(t)
	rt := newTestNative(t)

	has, err := rt.StoreHas("/a")
	require.NoError(err)
	require.Equal(ValueNone, has)

	require.NoError(rt.StoreWrite("/a/b", []byte{1}, 0))
	has, err = rt.StoreHas("/a")
	require.NoError(err)
	require.Equal(Subtree, has)

	has, err = rt.StoreHas("/a/b")
	require.NoError(err)
	require.Equal(ValueOnly, has)

	require.NoError(rt.StoreWrite("/c", []byte{1}, 0))
	require.NoError(rt.StoreWrite("/c/d", []byte{2}, 0))
	has, err = rt.StoreHas("/c")
	require.NoError(err)
	require.Equal(ValueWithSubtree, has)
}

func TestStoreReadTruncation(t *testing.T) {
	require := require.New(t)
	rt := newTestNative(t)

	require.NoError(rt.StoreWrite("/v", []byte{1, 2, 3, 4}, 0))

	size, err := rt.StoreValueSize("/v")
	require.NoError(err)
	require.Equal(4, size)

	data, err := rt.StoreRead("/v", 1, 2)
	require.NoError(err)
	require.Equal([]byte{2, 3}, data)

	data, err = rt.StoreRead("/v", 0, 10)
	require.NoError(err)
	require.Equal([]byte{1, 2, 3, 4}, data)

	data, err = rt.StoreRead("/v", 6, 10)
	require.NoError(err)
	require.Empty(data)

	_, err = rt.StoreRead("/missing", 0, 10)
	require.ErrorIs(err, ErrPathNotFound)

	size, err = rt.StoreValueSize("/missing")
	require.NoError(err)
	require.Zero(size)
}

func TestStoreReadSlice(t *testing.T) {
	require := require.New(t)
	rt := newTestNative(t)

	require.NoError(rt.StoreWrite("/v", []byte{1, 2, 3, 4}, 0))

	buf := make([]byte, 3)
	n, err := rt.StoreReadSlice("/v", 1, buf)
	require.NoError(err)
	require.Equal(3, n)
	require.Equal([]byte{2, 3, 4}, buf)

	n, err = rt.StoreReadSlice("/missing", 0, buf)
	require.NoError(err)
	require.Zero(n)
}

func TestStoreWriteOffsetSelectsSuffix(t *testing.T) {
	require := require.New(t)
	rt := newTestNative(t)

	require.NoError(rt.StoreWrite("/v", []byte{9, 9, 9, 9}, 0))
	require.NoError(rt.StoreWrite("/v", []byte{1, 2, 3}, 1))

	data, err := rt.StoreRead("/v", 0, 10)
	require.NoError(err)
	require.Equal([]byte{2, 3}, data)
}

func TestInvalidKeys(t *testing.T) {
	require := require.New(t)
	rt := newTestNative(t)

	for _, path := range []string{"relative", "/a//b", string([]byte{'/', 0xff, 0xfe})} {
		_, err := rt.StoreHas(path)
		require.ErrorIs(err, ErrInvalidKey, path)
		require.ErrorIs(rt.StoreWrite(path, []byte{1}, 0), ErrInvalidKey, path)
		require.ErrorIs(rt.StoreDelete(path), ErrInvalidKey, path)
		require.ErrorIs(rt.StoreCopy(path, "/x"), ErrInvalidKey, path)
		require.ErrorIs(rt.StoreMove("/x", path), ErrInvalidKey, path)
	}
}

func TestStoreCountSubkeys(t *testing.T) {
	require := require.New(t)
	rt := newTestNative(t)

	_, err := rt.StoreCountSubkeys("/a")
	require.ErrorIs(err, ErrNotANode)

	require.NoError(rt.StoreWrite("/a/x", []byte{1}, 0))
	require.NoError(rt.StoreWrite("/a/y", []byte{2}, 0))
	count, err := rt.StoreCountSubkeys("/a")
	require.NoError(err)
	require.Equal(uint64(2), count)

	require.NoError(rt.StoreDelete("/a/x"))
	count, err = rt.StoreCountSubkeys("/a")
	require.NoError(err)
	require.Equal(uint64(1), count)
}

func TestStoreDeleteKeepsParent(t *testing.T) {
	assert := assert.New(t)
	rt := newTestNative(t)

	assert.NoError(rt.StoreWrite("/p/c", []byte{1}, 0))
	assert.NoError(rt.StoreDelete("/p/c"))
	has, err := rt.StoreHas("/p")
	assert.NoError(err)
	assert.Equal(ValueNone, has)
	count, err := rt.StoreCountSubkeys("/p")
	assert.NoError(err)
	assert.Zero(count)
	has, err = rt.StoreHas("/p/c")
	assert.NoError(err)
	assert.Equal(ValueNone, has)

	assert.NoError(rt.StoreWrite("/q", []byte{2}, 0))
	assert.NoError(rt.StoreWrite("/q/c", []byte{3}, 0))
	assert.NoError(rt.StoreDelete("/q/c"))
	has, err = rt.StoreHas("/q")
	assert.NoError(err)
	assert.Equal(ValueOnly, has)
	value, err := rt.StoreRead("/q", 0, 8)
	assert.NoError(err)
	assert.Equal([]byte{2}, value)
}

func TestStoreMove(t *testing.T) {
	require := require.New(t)
	rt := newTestNative(t)

	require.NoError(rt.StoreWrite("/from/leaf", []byte{5}, 0))
	require.NoError(rt.StoreMove("/from", "/to"))

	data, err := rt.StoreRead("/to/leaf", 0, 1)
	require.NoError(err)
	require.Equal([]byte{5}, data)

	has, err := rt.StoreHas("/from")
	require.NoError(err)
	require.Equal(ValueNone, has)

	require.NoError(rt.StoreMove("/to", "/to"))
	require.ErrorIs(rt.StoreMove("/to", "/to/inner"), ErrInvalidAccess)
}

func TestUnsupportedCapabilities(t *testing.T) {
	require := require.New(t)
	rt := newTestNative(t)

	require.ErrorIs(rt.WriteOutput([]byte{1}), ErrUnsupported)
	_, err := rt.RevealPreimage(make([]byte, 33), make([]byte, 10))
	require.ErrorIs(err, ErrUnsupported)
	_, err = rt.RevealMetadata()
	require.ErrorIs(err, ErrUnsupported)
	_, err = rt.RuntimeVersion()
	require.ErrorIs(err, ErrUnsupported)
	_, err = rt.LastRunAborted()
	require.ErrorIs(err, ErrUnsupported)
	_, err = rt.UpgradeFailed()
	require.ErrorIs(err, ErrUnsupported)
	_, err = rt.RestartForced()
	require.ErrorIs(err, ErrUnsupported)

	require.NoError(rt.MarkForReboot())
	left, err := rt.RebootLeft()
	require.NoError(err)
	require.Equal(uint32(1000), left)
}
