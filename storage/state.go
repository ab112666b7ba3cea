// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
)

var (
	// These are prefixes for db keys.
	// It's important to set different prefixes for each separate database objects.
	metaStatePrefix = []byte("meta")
	treeStatePrefix = []byte("tree")

	_ State = (*state)(nil)
)

// State is a wrapper around Tree and MetaState.
// Every mutation is committed by the sub state performing it, so State only
// adds Close.
type State interface {
	Tree
	MetaState

	Close() error
}

type state struct {
	Tree
	MetaState

	baseDB *versiondb.Database
}

// NewState creates the durable state on top of [db]. Cache metrics are
// registered on [registerer].
func NewState(db database.Database, registerer prometheus.Registerer) (State, error) {
	// create a new baseDB
	baseDB := versiondb.New(db)
	batches := &batcher{baseDB: baseDB}

	tree, err := newTree(prefixdb.New(treeStatePrefix, baseDB), batches, registerer)
	if err != nil {
		return nil, err
	}

	return &state{
		Tree:      tree,
		MetaState: newMetaState(prefixdb.New(metaStatePrefix, baseDB), batches),
		baseDB:    baseDB,
	}, nil
}

// Close closes the underlying base database
func (s *state) Close() error {
	return s.baseDB.Close()
}

// batcher groups the writes of one logical update into a single commit of
// the version database. Readers holding the read lock never observe a
// partially applied update.
type batcher struct {
	lock   sync.RWMutex
	baseDB *versiondb.Database
}

func (b *batcher) update(f func() error) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	defer b.baseDB.Abort()

	if err := f(); err != nil {
		return err
	}
	return b.baseDB.Commit()
}

func (b *batcher) view(f func() error) error {
	b.lock.RLock()
	defer b.lock.RUnlock()

	return f()
}
