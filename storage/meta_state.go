// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"encoding/binary"
	"errors"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

const (
	IsInitializedKey byte = iota
	LevelKey
)

var (
	isInitializedKey = []byte{IsInitializedKey}
	levelKey         = []byte{LevelKey}

	errMalformedLevel = errors.New("malformed level record")

	_ MetaState = (*metaState)(nil)
)

// MetaState is a thin wrapper around a database to provide
// serialization and de-serialization of node bookkeeping.
type MetaState interface {
	IsInitialized() (bool, error)
	SetInitialized() error

	// GetLevel returns the last observed upstream level, 0 if none.
	GetLevel() (uint32, error)
	SetLevel(level uint32) error
}

type metaState struct {
	metaDB  database.Database
	batches *batcher
}

func newMetaState(db database.Database, batches *batcher) MetaState {
	return &metaState{
		metaDB:  db,
		batches: batches,
	}
}

func (s *metaState) IsInitialized() (bool, error) {
	var has bool
	err := s.batches.view(func() (err error) {
		has, err = s.metaDB.Has(isInitializedKey)
		return err
	})
	return has, err
}

func (s *metaState) SetInitialized() error {
	return s.batches.update(func() error {
		return s.metaDB.Put(isInitializedKey, nil)
	})
}

func (s *metaState) GetLevel() (uint32, error) {
	var raw []byte
	err := s.batches.view(func() (err error) {
		raw, err = s.metaDB.Get(levelKey)
		return err
	})
	switch {
	case errors.Is(err, database.ErrNotFound):
		return 0, nil
	case err != nil:
		return 0, err
	case len(raw) != wrappers.IntLen:
		return 0, errMalformedLevel
	}
	return binary.BigEndian.Uint32(raw), nil
}

func (s *metaState) SetLevel(level uint32) error {
	raw := make([]byte, wrappers.IntLen)
	binary.BigEndian.PutUint32(raw, level)
	return s.batches.update(func() error {
		return s.metaDB.Put(levelKey, raw)
	})
}
