// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"
	"errors"

	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/rpc"

	"github.com/ava-labs/sequencervm/sequencer"
)

// Client defines sequencer client operations.
type Client interface {
	// SubmitOperation queues an operation, returns once it was dequeued
	SubmitOperation(ctx context.Context, op []byte) (bool, error)

	// ApplyOperation queues an operation, returns once it was executed
	ApplyOperation(ctx context.Context, op []byte) error

	// GetValue fetches the value stored at a path
	GetValue(ctx context.Context, path string) ([]byte, bool, error)

	// GetSubkeys lists the children of a path
	GetSubkeys(ctx context.Context, path string) ([]string, bool, error)

	// Status returns the current level and the number of batched operations
	Status(ctx context.Context) (uint32, uint32, error)
}

// New creates a new client object. [uri] is the JSON-RPC endpoint of a
// node, for example http://127.0.0.1:8080/rpc.
func New(uri string) Client {
	req := rpc.NewEndpointRequester(uri)
	return &client{req: req}
}

type client struct {
	req rpc.EndpointRequester
}

func (cli *client) SubmitOperation(ctx context.Context, op []byte) (bool, error) {
	data, err := formatting.Encode(formatting.Hex, op)
	if err != nil {
		return false, err
	}

	resp := new(sequencer.SubmitOperationReply)
	err = cli.req.SendRequest(ctx,
		"sequencer.submitOperation",
		&sequencer.SubmitOperationArgs{Data: data},
		resp,
	)
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (cli *client) ApplyOperation(ctx context.Context, op []byte) error {
	data, err := formatting.Encode(formatting.Hex, op)
	if err != nil {
		return err
	}

	resp := new(sequencer.ApplyOperationReply)
	err = cli.req.SendRequest(ctx,
		"sequencer.applyOperation",
		&sequencer.SubmitOperationArgs{Data: data},
		resp,
	)
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(resp.Error)
	}
	return nil
}

func (cli *client) GetValue(ctx context.Context, path string) ([]byte, bool, error) {
	resp := new(sequencer.GetValueReply)
	err := cli.req.SendRequest(ctx,
		"sequencer.getValue",
		&sequencer.PathArgs{Path: path},
		resp,
	)
	if err != nil || !resp.Found {
		return nil, false, err
	}
	value, err := formatting.Decode(formatting.Hex, resp.Data)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (cli *client) GetSubkeys(ctx context.Context, path string) ([]string, bool, error) {
	resp := new(sequencer.GetSubkeysReply)
	err := cli.req.SendRequest(ctx,
		"sequencer.getSubkeys",
		&sequencer.PathArgs{Path: path},
		resp,
	)
	if err != nil {
		return nil, false, err
	}
	return resp.Subkeys, resp.Found, nil
}

func (cli *client) Status(ctx context.Context) (uint32, uint32, error) {
	resp := new(sequencer.StatusReply)
	err := cli.req.SendRequest(ctx,
		"sequencer.status",
		struct{}{},
		resp,
	)
	if err != nil {
		return 0, 0, err
	}
	return uint32(resp.Level), uint32(resp.Pending), nil
}
