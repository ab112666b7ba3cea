// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sequencer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/avalanchego/utils/formatting"

	"github.com/ava-labs/sequencervm/kernels/counter"
)

func newTestServer(t *testing.T) (*Node, *httptest.Server) {
	t.Helper()
	node, _, registry := newTestNodeWithRegistry(t, DefaultConfig(), nil, counter.Kernel{}, &testInjector{})
	startNode(t, node)

	handler, err := NewHandler(node, registry)
	require.NoError(t, err)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return node, server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestRESTRoutes(t *testing.T) {
	require := require.New(t)
	node, server := newTestServer(t)

	status, _ := get(t, server.URL+"/health")
	require.Equal(http.StatusOK, status)

	resp, err := http.Post(server.URL+"/operations", "application/json", strings.NewReader(`{"data":"88"}`))
	require.NoError(err)
	resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)

	// wait for the submitted operation to be applied
	require.NoError(node.ApplyOperation(context.Background(), []byte{0x00}))

	status, body := get(t, server.URL+"/state/value?path=/counter")
	require.Equal(http.StatusOK, status)
	require.Equal("0000000000000001", body)

	status, _ = get(t, server.URL+"/state/value?path=/missing")
	require.Equal(http.StatusNotFound, status)

	status, _ = get(t, server.URL+"/state/subkeys?path=/")
	require.Equal(http.StatusNotFound, status)

	status, body = get(t, server.URL+"/state/subkeys?path=/counter")
	require.Equal(http.StatusOK, status)
	require.JSONEq(`[]`, body)

	resp, err = http.Post(server.URL+"/operations", "application/json", strings.NewReader(`{"data":"zz"}`))
	require.NoError(err)
	resp.Body.Close()
	require.Equal(http.StatusBadRequest, resp.StatusCode)

	status, body = get(t, server.URL+"/metrics")
	require.Equal(http.StatusOK, status)
	require.Contains(body, "sequencer_operations")
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

func call(t *testing.T, url, method string, params interface{}) rpcResponse {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  ServiceName + "." + method,
		"params":  params,
	})
	require.NoError(t, err)

	resp, err := http.Post(url+"/rpc", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var reply rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	return reply
}

func TestRPCService(t *testing.T) {
	require := require.New(t)
	_, server := newTestServer(t)

	data, err := formatting.Encode(formatting.Hex, []byte{counter.IncrementOp})
	require.NoError(err)

	reply := call(t, server.URL, "applyOperation", SubmitOperationArgs{Data: data})
	var applied ApplyOperationReply
	require.NoError(json.Unmarshal(reply.Result, &applied))
	require.True(applied.Success)

	reply = call(t, server.URL, "getValue", PathArgs{Path: counter.Path})
	var value GetValueReply
	require.NoError(json.Unmarshal(reply.Result, &value))
	require.True(value.Found)
	raw, err := formatting.Decode(formatting.Hex, value.Data)
	require.NoError(err)
	require.Equal([]byte{0, 0, 0, 0, 0, 0, 0, 1}, raw)

	reply = call(t, server.URL, "getSubkeys", PathArgs{Path: "/"})
	var subkeys GetSubkeysReply
	require.NoError(json.Unmarshal(reply.Result, &subkeys))
	require.False(subkeys.Found)

	reply = call(t, server.URL, "status", struct{}{})
	var status StatusReply
	require.NoError(json.Unmarshal(reply.Result, &status))
	require.Equal(uint32(1), uint32(status.Pending))
	require.Zero(uint32(status.Level))
}
