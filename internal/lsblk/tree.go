// Package lsblk models the block device hierarchy reported by `lsblk -J`.
// It is used for topology and capacity reports only.
package lsblk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kriansa/labelmount/internal/capacity"
)

// Tree is the top level lsblk document.
type Tree struct {
	BlockDevices []Node `json:"blockdevices" yaml:"blockdevices"`
}

// Node is a single block device. Children are owned by their parent.
type Node struct {
	Name     string `json:"name" yaml:"name"`
	MajMin   string `json:"maj:min" yaml:"maj_min"`
	Size     Size   `json:"size" yaml:"size"`
	ReadOnly bool   `json:"ro" yaml:"read_only"`
	Type     string `json:"type" yaml:"type"`
	// MountPoints keeps lsblk's null entries as nil pointers. A nil slice
	// means the field was absent from the input.
	MountPoints []*string `json:"mountpoints" yaml:"mountpoints"`
	Children    []Node    `json:"children" yaml:"children"`
}

// Size is a capacity in bytes. It decodes from either a unit suffixed string
// ("465.8G") or a plain number (lsblk -b).
type Size uint64

func (s *Size) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		// lsblk prints sizes below one KiB with a B suffix, e.g. "0B".
		v, err := capacity.Parse(strings.TrimSuffix(str, "B"))
		if err != nil {
			return err
		}
		*s = Size(v)
		return nil
	}

	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("parse size %s: %w", data, err)
	}
	*s = Size(v)
	return nil
}

// Bytes returns the size as a plain byte count.
func (s Size) Bytes() uint64 {
	return uint64(s)
}

func (s Size) String() string {
	return capacity.Format(uint64(s))
}

// FromJSON decodes lsblk JSON output. Missing children decode as an empty
// list.
func FromJSON(data []byte) (*Tree, error) {
	var tree Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode lsblk output: %w", err)
	}
	for i := range tree.BlockDevices {
		normalize(&tree.BlockDevices[i])
	}
	return &tree, nil
}

func normalize(n *Node) {
	if n.Children == nil {
		n.Children = []Node{}
	}
	for i := range n.Children {
		normalize(&n.Children[i])
	}
}

// Walk visits every node depth first, parents before children. depth is 0
// for top level devices.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	for i := range t.BlockDevices {
		walk(&t.BlockDevices[i], 0, fn)
	}
}

func walk(n *Node, depth int, fn func(*Node, int)) {
	fn(n, depth)
	for i := range n.Children {
		walk(&n.Children[i], depth+1, fn)
	}
}

// Find returns the first node named name, or nil.
func (t *Tree) Find(name string) *Node {
	var found *Node
	t.Walk(func(n *Node, _ int) {
		if found == nil && n.Name == name {
			found = n
		}
	})
	return found
}

// Mounted returns the non-null mount points of the node.
func (n *Node) Mounted() []string {
	var res []string
	for _, mp := range n.MountPoints {
		if mp != nil {
			res = append(res, *mp)
		}
	}
	return res
}
