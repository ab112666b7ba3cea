// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sequencer

import (
	"errors"
	"net/http"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/json"
)

// ServiceName is the JSON-RPC service name, methods are "sequencer.<method>".
const ServiceName = "sequencer"

// Service is the API service for this node
type Service struct{ node *Node }

func NewService(node *Node) *Service {
	return &Service{node: node}
}

// SubmitOperationArgs are the arguments to SubmitOperation and
// ApplyOperation
type SubmitOperationArgs struct {
	// Hex-encoded operation, with checksum
	Data string `json:"data"`
}

// SubmitOperationReply is the reply from SubmitOperation
type SubmitOperationReply struct {
	Success bool `json:"success"`
}

// SubmitOperation queues an operation and returns once it was picked up
func (s *Service) SubmitOperation(r *http.Request, args *SubmitOperationArgs, reply *SubmitOperationReply) error {
	op, err := decodeOperation(args.Data)
	if err != nil {
		return err
	}
	if err := s.node.SubmitOperation(r.Context(), op); err != nil {
		return err
	}
	reply.Success = true
	return nil
}

// ApplyOperationReply is the reply from ApplyOperation
type ApplyOperationReply struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ApplyOperation queues an operation and returns once the kernel ran for it.
// A kernel failure is reported in the reply, not as an API error.
func (s *Service) ApplyOperation(r *http.Request, args *SubmitOperationArgs, reply *ApplyOperationReply) error {
	op, err := decodeOperation(args.Data)
	if err != nil {
		return err
	}
	err = s.node.ApplyOperation(r.Context(), op)
	switch {
	case errors.Is(err, ErrNodeClosed) || r.Context().Err() != nil:
		return err
	case err != nil:
		reply.Error = err.Error()
	default:
		reply.Success = true
	}
	return nil
}

// PathArgs names a node of the state tree
type PathArgs struct {
	Path string `json:"path"`
}

// GetValueReply is the reply from GetValue
type GetValueReply struct {
	Found bool   `json:"found"`
	Data  string `json:"data"`
}

// GetValue returns the value at a path
func (s *Service) GetValue(_ *http.Request, args *PathArgs, reply *GetValueReply) error {
	value, ok := s.node.GetValue(args.Path)
	if !ok {
		return nil
	}
	data, err := formatting.Encode(formatting.Hex, value)
	if err != nil {
		return err
	}
	reply.Found = true
	reply.Data = data
	return nil
}

// GetSubkeysReply is the reply from GetSubkeys
type GetSubkeysReply struct {
	Found   bool     `json:"found"`
	Subkeys []string `json:"subkeys"`
}

// GetSubkeys returns the child names of a path
func (s *Service) GetSubkeys(_ *http.Request, args *PathArgs, reply *GetSubkeysReply) error {
	subkeys, ok := s.node.GetSubkeys(args.Path)
	reply.Found = ok
	reply.Subkeys = subkeys
	return nil
}

// StatusReply is the reply from Status
type StatusReply struct {
	Level   json.Uint32 `json:"level"`
	Pending json.Uint32 `json:"pending"`
	Backlog json.Uint32 `json:"backlog"`
}

// Status returns the current level, the size of the open batch and the
// number of queued entries
func (s *Service) Status(_ *http.Request, _ *struct{}, reply *StatusReply) error {
	reply.Level = json.Uint32(s.node.Level())
	reply.Pending = json.Uint32(s.node.Pending())
	reply.Backlog = json.Uint32(s.node.Backlog())
	return nil
}

func decodeOperation(data string) ([]byte, error) {
	op, err := formatting.Decode(formatting.Hex, data)
	if err != nil {
		log.Debug("rejecting operation", "err", err)
		return nil, err
	}
	return op, nil
}
