// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"sort"
	"sync"
)

// nodeChild is one entry of a Node's ordered Children array: the
// leading byte it matches and the offset of the child Node.
type nodeChild struct {
	Byte   byte
	Offset int64
}

// numericChild is a v3.2-only numeric-range child (§3, §4.G step 3):
// [Low, High] bounds a numeric substring at the node's position.
type numericChild struct {
	Low, High uint16
	Offset    int64
}

// Node is a position in the per-character trie (§3, GLOSSARY): the
// byte run it represents, where in a candidate UA it applies, and its
// ordered Children.
type Node struct {
	ds     *Dataset
	Offset int64

	ParentOffset         int64
	Position             int32
	Characters           []byte
	Children             []nodeChild
	NumericChildren      []numericChild
	RankedSignatureCount int32

	mu     sync.Mutex
	parent *Node
}

const noParent = int64(-1)

// decodeNode reads one variable-size Node record and reports its
// total byte length.
func decodeNode(ds *Dataset) func(r *Reader, offset int64) (*Node, int64, error) {
	return func(r *Reader, offset int64) (*Node, int64, error) {
		n := &Node{ds: ds, Offset: offset}
		var err error
		if n.ParentOffset, err = r.ReadI64(); err != nil {
			return nil, 0, err
		}
		if n.Position, err = r.ReadI32(); err != nil {
			return nil, 0, err
		}
		charLen, err := r.ReadU16()
		if err != nil {
			return nil, 0, err
		}
		if n.Characters, err = r.ReadBytes(int(charLen)); err != nil {
			return nil, 0, err
		}
		length := int64(8 + 4 + 2 + int(charLen))

		childCount, err := r.ReadU16()
		if err != nil {
			return nil, 0, err
		}
		length += 2
		n.Children = make([]nodeChild, childCount)
		for i := range n.Children {
			b, err := r.ReadU8()
			if err != nil {
				return nil, 0, err
			}
			off, err := r.ReadI64()
			if err != nil {
				return nil, 0, err
			}
			n.Children[i] = nodeChild{Byte: b, Offset: off}
			length += 1 + 8
		}

		if ds.header.IsV32() {
			numericCount, err := r.ReadU16()
			if err != nil {
				return nil, 0, err
			}
			length += 2
			n.NumericChildren = make([]numericChild, numericCount)
			for i := range n.NumericChildren {
				lo, err := r.ReadU16()
				if err != nil {
					return nil, 0, err
				}
				hi, err := r.ReadU16()
				if err != nil {
					return nil, 0, err
				}
				off, err := r.ReadI64()
				if err != nil {
					return nil, 0, err
				}
				n.NumericChildren[i] = numericChild{Low: lo, High: hi, Offset: off}
				length += 2 + 2 + 8
			}
		}

		if n.RankedSignatureCount, err = r.ReadI32(); err != nil {
			return nil, 0, err
		}
		length += 4

		return n, length, nil
	}
}

// ChildAt returns the child Node matching byte b, via binary search
// over Children, which the file format guarantees are ordered by
// leading byte (§3 invariant 6).
func (n *Node) ChildAt(b byte) (*Node, bool, error) {
	children := n.Children
	i := sort.Search(len(children), func(i int) bool { return children[i].Byte >= b })
	if i >= len(children) || children[i].Byte != b {
		return nil, false, nil
	}
	child, err := n.ds.nodes.GetByOffset(children[i].Offset)
	if err != nil {
		return nil, false, err
	}
	return child, true, nil
}

// Parent resolves this node's parent, memoised. Returns nil for a
// root node (ParentOffset == noParent).
func (n *Node) Parent() (*Node, error) {
	if n.ParentOffset == noParent {
		return nil, nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.parent != nil {
		return n.parent, nil
	}
	p, err := n.ds.nodes.GetByOffset(n.ParentOffset)
	if err != nil {
		return nil, err
	}
	n.parent = p
	return p, nil
}
