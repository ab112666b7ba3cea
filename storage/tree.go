// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/cache/metercacher"
	"github.com/ava-labs/avalanchego/database"
)

const nodeCacheSize = 8192

var (
	errNodeWrongVersion = errors.New("wrong version")

	_ Tree = (*tree)(nil)
)

// TreeNode is the record stored for every path of the tree. Children holds
// the names of the immediate children, not their paths.
type TreeNode struct {
	Key      string   `serialize:"true" json:"key"`
	HasValue bool     `serialize:"true" json:"hasValue"`
	Value    []byte   `serialize:"true" json:"value"`
	Children []string `serialize:"true" json:"children"`
}

// HasChild reports whether [name] is an immediate child of the node.
func (n *TreeNode) HasChild(name string) bool {
	for _, child := range n.Children {
		if child == name {
			return true
		}
	}
	return false
}

func (n *TreeNode) clone() *TreeNode {
	c := &TreeNode{
		Key:      n.Key,
		HasValue: n.HasValue,
	}
	if n.Value != nil {
		c.Value = append([]byte{}, n.Value...)
	}
	if len(n.Children) > 0 {
		c.Children = append([]string{}, n.Children...)
	}
	return c
}

// Tree is a hierarchical key-value store keyed by slash-separated paths.
// Every mutation is applied atomically.
type Tree interface {
	// Write links every ancestor of [path] to it and replaces the node at
	// [path] with a leaf holding [value]. Any previous subtree is dropped.
	Write(path string, value []byte) error
	// Read returns database.ErrNotFound when [path] holds no value.
	Read(path string) ([]byte, error)
	// ReadNode returns database.ErrNotFound when [path] has no node.
	ReadNode(path string) (*TreeNode, error)
	// Subkeys returns the child names of [path], none if it is absent.
	Subkeys(path string) ([]string, error)
	// Delete removes the subtree rooted at [path] and unlinks it from its
	// parent.
	Delete(path string) error
	// Copy replaces the subtree at [to] with a duplicate of the subtree at
	// [from]. Copying an absent subtree does nothing.
	Copy(from, to string) error
}

type tree struct {
	nodeCache cache.Cacher[string, *TreeNode]
	treeDB    database.Database
	batches   *batcher
}

func newTree(db database.Database, batches *batcher, registerer prometheus.Registerer) (Tree, error) {
	nodeCache, err := metercacher.New[string, *TreeNode](
		"node_cache",
		registerer,
		&cache.LRU[string, *TreeNode]{Size: nodeCacheSize},
	)
	if err != nil {
		return nil, err
	}
	return &tree{
		nodeCache: nodeCache,
		treeDB:    db,
		batches:   batches,
	}, nil
}

func (t *tree) Write(path string, value []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	return t.update(func() error {
		if err := t.linkAncestors(path); err != nil {
			return err
		}
		if err := t.deleteChildren(path); err != nil {
			return err
		}
		if value == nil {
			value = []byte{}
		}
		return t.putNode(&TreeNode{
			Key:      path,
			HasValue: true,
			Value:    append([]byte{}, value...),
		})
	})
}

func (t *tree) Read(path string) ([]byte, error) {
	node, err := t.ReadNode(path)
	if err != nil {
		return nil, err
	}
	if !node.HasValue {
		return nil, database.ErrNotFound
	}
	if node.Value == nil {
		return []byte{}, nil
	}
	return node.Value, nil
}

func (t *tree) ReadNode(path string) (*TreeNode, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	var node *TreeNode
	err := t.batches.view(func() (err error) {
		node, err = t.getNode(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return node.clone(), nil
}

func (t *tree) Subkeys(path string) ([]string, error) {
	node, err := t.ReadNode(path)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return node.Children, nil
}

func (t *tree) Delete(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	return t.update(func() error {
		if err := t.unlink(path); err != nil {
			return err
		}
		return t.deleteSubtree(path)
	})
}

func (t *tree) Copy(from, to string) error {
	if err := ValidatePath(from); err != nil {
		return err
	}
	if err := ValidatePath(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	return t.update(func() error {
		snapshot, err := t.collect(from)
		if err != nil {
			return err
		}
		if len(snapshot) == 0 {
			return nil
		}
		if err := t.deleteSubtree(to); err != nil {
			return err
		}
		if err := t.linkAncestors(to); err != nil {
			return err
		}
		for _, node := range snapshot {
			node.Key = rebase(node.Key, from, to)
			if err := t.putNode(node); err != nil {
				return err
			}
		}
		return nil
	})
}

// update runs [f] as one atomic batch. A failed batch leaves the cache
// out of sync with the database, so it is flushed.
func (t *tree) update(f func() error) error {
	err := t.batches.update(f)
	if err != nil {
		t.nodeCache.Flush()
	}
	return err
}

// linkAncestors makes sure that every proper ancestor of [path] exists and
// lists the next segment as a child.
func (t *tree) linkAncestors(path string) error {
	current := Root
	for _, segment := range Segments(path) {
		node, err := t.getNode(current)
		switch {
		case errors.Is(err, database.ErrNotFound):
			node = &TreeNode{Key: current}
		case err != nil:
			return err
		default:
			node = node.clone()
		}
		if !node.HasChild(segment) {
			node.Children = append(node.Children, segment)
			if err := t.putNode(node); err != nil {
				return err
			}
		}
		current = Join(current, segment)
	}
	return nil
}

// unlink drops [path] from its parent's child set.
func (t *tree) unlink(path string) error {
	parent, name, ok := Parent(path)
	if !ok {
		return nil
	}
	node, err := t.getNode(parent)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil
	case err != nil:
		return err
	}
	if !node.HasChild(name) {
		return nil
	}
	updated := node.clone()
	updated.Children = updated.Children[:0]
	for _, child := range node.Children {
		if child != name {
			updated.Children = append(updated.Children, child)
		}
	}
	return t.putNode(updated)
}

func (t *tree) deleteChildren(path string) error {
	node, err := t.getNode(path)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil
	case err != nil:
		return err
	}
	for _, child := range node.Children {
		if err := t.deleteSubtree(Join(path, child)); err != nil {
			return err
		}
	}
	return nil
}

// deleteSubtree removes the children of [path] depth-first, then the node.
func (t *tree) deleteSubtree(path string) error {
	if err := t.deleteChildren(path); err != nil {
		return err
	}
	t.nodeCache.Evict(path)
	return t.treeDB.Delete([]byte(path))
}

// collect returns copies of every node of the subtree at [path], parents
// before children.
func (t *tree) collect(path string) ([]*TreeNode, error) {
	node, err := t.getNode(path)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	nodes := []*TreeNode{node.clone()}
	for _, child := range node.Children {
		sub, err := t.collect(Join(path, child))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, sub...)
	}
	return nodes, nil
}

func (t *tree) getNode(path string) (*TreeNode, error) {
	if node, ok := t.nodeCache.Get(path); ok {
		return node, nil
	}

	nodeBytes, err := t.treeDB.Get([]byte(path))
	if err != nil {
		return nil, err
	}

	node := &TreeNode{}
	parsedVersion, err := Codec.Unmarshal(nodeBytes, node)
	if err != nil {
		return nil, fmt.Errorf("failed to parse node %q: %w", path, err)
	}
	if parsedVersion != CodecVersion {
		return nil, errNodeWrongVersion
	}

	t.nodeCache.Put(path, node)
	return node, nil
}

func (t *tree) putNode(node *TreeNode) error {
	nodeBytes, err := Codec.Marshal(CodecVersion, node)
	if err != nil {
		return err
	}

	t.nodeCache.Put(node.Key, node)
	return t.treeDB.Put([]byte(node.Key), nodeBytes)
}
