// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sequencer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInjectPostsHexBatch(t *testing.T) {
	require := require.New(t)

	var received []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(http.MethodPost, r.Method)
		require.Equal(InjectionPath, r.URL.Path)
		require.NoError(json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	injector := NewRollupInjector(server.URL+"/", time.Second)
	require.NoError(injector.Inject(context.Background(), [][]byte{{0xde, 0xad}, {0x01}}))
	require.Equal([]string{"dead", "01"}, received)
}

func TestInjectEmptyBatchIsNoop(t *testing.T) {
	require := require.New(t)

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls++
	}))
	defer server.Close()

	injector := NewRollupInjector(server.URL, time.Second)
	require.NoError(injector.Inject(context.Background(), nil))
	require.Zero(calls)
}

func TestInjectFailures(t *testing.T) {
	require := require.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	injector := NewRollupInjector(server.URL, time.Second)
	require.ErrorIs(injector.Inject(context.Background(), [][]byte{{1}}), ErrInjectionFailed)

	// unreachable endpoint
	server.Close()
	require.ErrorIs(injector.Inject(context.Background(), [][]byte{{1}}), ErrInjectionFailed)
}
