// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sequencer

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/rpc/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	avajson "github.com/ava-labs/avalanchego/utils/json"
)

// OperationRequest is the body of POST /operations.
type OperationRequest struct {
	Data string `json:"data"`
}

// NewHandler exposes [node] over HTTP: the REST routes, the JSON-RPC
// service under /rpc and the metrics of [gatherer] under /metrics.
func NewHandler(node *Node, gatherer prometheus.Gatherer) (http.Handler, error) {
	server := rpc.NewServer()
	codec := avajson.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	if err := server.RegisterService(NewService(node), ServiceName); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Post("/operations", postOperation(node))
	r.Get("/state/value", getStateValue(node))
	r.Get("/state/subkeys", getStateSubkeys(node))
	r.Handle("/rpc", server)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r, nil
}

func postOperation(node *Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body OperationRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "malformed body", http.StatusBadRequest)
			return
		}
		op, err := hex.DecodeString(strings.TrimPrefix(body.Data, "0x"))
		if err != nil {
			http.Error(w, "data is not hex", http.StatusBadRequest)
			return
		}

		switch err := node.SubmitOperation(r.Context(), op); {
		case errors.Is(err, ErrNodeClosed):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte("Operation submitted"))
		}
	}
}

func getStateValue(node *Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value, ok := node.GetValue(r.URL.Query().Get("path"))
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(hex.EncodeToString(value)))
	}
}

func getStateSubkeys(node *Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subkeys, ok := node.GetSubkeys(r.URL.Query().Get("path"))
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(subkeys)
	}
}
