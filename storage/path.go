// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Root is the path of the top-level node.
const Root = "/"

var ErrInvalidPath = errors.New("invalid path")

// ValidatePath accepts "/" and absolute paths made of non-empty segments.
func ValidatePath(path string) error {
	if path == Root {
		return nil
	}
	if !strings.HasPrefix(path, Root) {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, path)
	}
	for _, segment := range strings.Split(path[1:], "/") {
		if segment == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}
	return nil
}

// Segments splits a valid path into its names. The root has none.
func Segments(path string) []string {
	if path == Root {
		return nil
	}
	return strings.Split(path[1:], "/")
}

// Join appends [name] to [parent].
func Join(parent, name string) string {
	if parent == Root {
		return Root + name
	}
	return parent + "/" + name
}

// Parent returns the parent path and the last segment of [path].
// The root has no parent.
func Parent(path string) (string, string, bool) {
	if path == Root {
		return "", "", false
	}
	i := strings.LastIndex(path, "/")
	if i == 0 {
		return Root, path[1:], true
	}
	return path[:i], path[i+1:], true
}

// IsWithin reports whether [path] is [prefix] or lies below it.
func IsWithin(path, prefix string) bool {
	if prefix == Root || path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

// rebase moves [path], which lies within [from], under [to].
func rebase(path, from, to string) string {
	if path == from {
		return to
	}
	suffix := path
	if from != Root {
		suffix = path[len(from):]
	}
	if to == Root {
		return suffix
	}
	return to + suffix
}
