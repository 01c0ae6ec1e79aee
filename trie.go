// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"github.com/saferwall/uadetect/ulog"
)

// TrieMagic identifies a trie-format data file, distinct from Magic
// (§4.H "an alternative format for latency-critical paths").
const TrieMagic = uint32(0x45495254)

const deviceOrdinalAbsent = 0xff

// trieOffsetWidth is the bit width of one child-offset table entry,
// chosen per node to keep small tries compact (§4.H).
type trieOffsetWidth uint8

const (
	offsetWidth16 trieOffsetWidth = 16
	offsetWidth32 trieOffsetWidth = 32
	offsetWidth64 trieOffsetWidth = 64
)

// TrieHeader is the fixed header of a trie-format data file.
type TrieHeader struct {
	CopyrightOffset int64
	PropertyCount   uint32
	DeviceCount     uint32
	RootOffset      int64

	Strings     region
	Properties  region // stride 8: one string-offset per property, in declaration order
	Devices     region // stride 8*PropertyCount: one string-offset per property, per device
	LookupLists region // offset-addressed only; walked via node pointers, never scanned
	Nodes       region
	NodesLength int64 // total byte length of the nodes block
}

func readTrieHeader(r *Reader) (*TrieHeader, error) {
	magic, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if magic != TrieMagic {
		return nil, datasetFormatf("bad trie magic 0x%x, want 0x%x", magic, TrieMagic)
	}
	h := &TrieHeader{}
	if h.CopyrightOffset, err = r.ReadI64(); err != nil {
		return nil, err
	}
	if h.PropertyCount, err = r.ReadU32(); err != nil {
		return nil, err
	}
	if h.DeviceCount, err = r.ReadU32(); err != nil {
		return nil, err
	}
	if h.RootOffset, err = r.ReadI64(); err != nil {
		return nil, err
	}
	regions := []*region{&h.Strings, &h.Properties, &h.Devices, &h.LookupLists, &h.Nodes}
	for _, reg := range regions {
		count, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		offset, err := r.ReadI64()
		if err != nil {
			return nil, err
		}
		reg.Count, reg.Offset = count, offset
	}
	if h.NodesLength, err = r.ReadI64(); err != nil {
		return nil, err
	}
	return h, nil
}

// trieLookupList is the per-byte ordinal table a TrieNode points at:
// bytes outside [Low, High] or mapping to 255 have no matching child
// (§4.H "bound-check b against [low, high]... 255, terminate").
type trieLookupList struct {
	Low, High byte
	Table     []byte
}

func readTrieLookupList(r *Reader, offset int64) (*trieLookupList, error) {
	r.Seek(offset)
	low, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	high, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	n := 0
	if high >= low {
		n = int(high-low) + 1
	}
	table, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	return &trieLookupList{Low: low, High: high, Table: table}, nil
}

func (ll *trieLookupList) ordinal(b byte) (int, bool) {
	if b < ll.Low || b > ll.High {
		return 0, false
	}
	o := ll.Table[b-ll.Low]
	if o == deviceOrdinalAbsent {
		return 0, false
	}
	return int(o), true
}

// trieNode is one node of the per-byte decision tree (§4.H). The
// lookup-list offset's sign bit marks whether the node carries its
// own device index or inherits its parent's.
type trieNode struct {
	Offset int64

	LookupOffset int64
	HasDevice    bool
	DeviceIndex  uint32
	OffsetWidth  trieOffsetWidth
	Children     []int64 // absolute file offsets, ordered by ordinal
}

const trieDeviceBit = int64(1) << 63

func decodeTrieNode(r *Reader, offset int64) (*trieNode, error) {
	n := &trieNode{Offset: offset}
	raw, err := r.ReadI64()
	if err != nil {
		return nil, err
	}
	n.HasDevice = raw&trieDeviceBit != 0
	n.LookupOffset = raw &^ trieDeviceBit

	if n.HasDevice {
		if n.DeviceIndex, err = r.ReadU32(); err != nil {
			return nil, err
		}
	}

	childCount, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	widthCode, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	switch widthCode {
	case 16, 32, 64:
		n.OffsetWidth = trieOffsetWidth(widthCode)
	default:
		return nil, datasetFormatf("trie node at %d: bad offset width %d", offset, widthCode)
	}

	n.Children = make([]int64, childCount)
	for i := range n.Children {
		switch n.OffsetWidth {
		case offsetWidth16:
			v, err := r.ReadU16()
			if err != nil {
				return nil, err
			}
			n.Children[i] = int64(v)
		case offsetWidth32:
			v, err := r.ReadU32()
			if err != nil {
				return nil, err
			}
			n.Children[i] = int64(v)
		case offsetWidth64:
			v, err := r.ReadI64()
			if err != nil {
				return nil, err
			}
			n.Children[i] = v
		}
	}
	return n, nil
}

// TrieMatch is the result of walking a TrieProvider against a UA.
type TrieMatch struct {
	DeviceIndex    uint32
	NodesEvaluated int
	IsComplete     bool
}

// TrieProvider serves §4.H's alternative one-node-per-byte format,
// trading the five-strategy matcher's accuracy for a tighter
// worst-case latency bound: no binary search, no candidate scoring,
// one pool read per UA byte.
type TrieProvider struct {
	source Source
	pool   *Pool
	header *TrieHeader
	log    *ulog.Helper

	strings *variableList[string]
}

// TrieOpenOptions configures TrieProvider.Open, mirroring Dataset's
// OpenOptions (§4.B, §4.J).
type TrieOpenOptions struct {
	Mode       Mode
	MaxReaders int
	CacheSize  int
	Logger     ulog.Logger
}

// OpenTrie reads a trie-format data file and returns a ready
// TrieProvider.
func OpenTrie(source Source, opts TrieOpenOptions) (*TrieProvider, error) {
	pool := NewPool(source, opts.MaxReaders, opts.Logger)

	r, err := pool.Acquire()
	if err != nil {
		return nil, err
	}
	h, err := readTrieHeader(r)
	pool.Release(r)
	if err != nil {
		return nil, err
	}

	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = 4096
	}

	tp := &TrieProvider{source: source, pool: pool, header: h, log: ulog.NewHelper(opts.Logger)}
	tp.strings = newVariableList[string](pool, h.Strings.Offset, int(h.Strings.Count), cacheSize, "trie-strings", decodeString)
	return tp, nil
}

// propertyName resolves the name of the property at declaration
// index i.
func (tp *TrieProvider) propertyName(i int) (string, error) {
	r, err := tp.pool.Acquire()
	if err != nil {
		return "", err
	}
	defer tp.pool.Release(r)

	offset := tp.header.Properties.Offset + int64(i)*8
	r.Seek(offset)
	strOffset, err := r.ReadI64()
	if err != nil {
		return "", err
	}
	return tp.strings.GetByOffset(strOffset)
}

// node reads the trieNode at offset.
func (tp *TrieProvider) node(offset int64) (*trieNode, error) {
	r, err := tp.pool.Acquire()
	if err != nil {
		return nil, err
	}
	defer tp.pool.Release(r)
	r.Seek(offset)
	return decodeTrieNode(r, offset)
}

func (tp *TrieProvider) lookupList(offset int64) (*trieLookupList, error) {
	r, err := tp.pool.Acquire()
	if err != nil {
		return nil, err
	}
	defer tp.pool.Release(r)
	return readTrieLookupList(r, offset)
}

// Match walks one node per UA byte (§4.H), returning the device index
// in scope when the walk terminates — either because the UA is
// exhausted or because no child matches the next byte.
func (tp *TrieProvider) Match(userAgent []byte) (*TrieMatch, error) {
	ua := sanitize(userAgent)

	node, err := tp.node(tp.header.RootOffset)
	if err != nil {
		return nil, err
	}

	var deviceIndex uint32
	if node.HasDevice {
		deviceIndex = node.DeviceIndex
	}

	evaluated := 0
	for pos := 0; pos < len(ua); pos++ {
		evaluated++
		ll, err := tp.lookupList(node.LookupOffset)
		if err != nil {
			return nil, err
		}
		ordinal, ok := ll.ordinal(ua[pos])
		if !ok || ordinal >= len(node.Children) {
			break
		}
		child, err := tp.node(node.Children[ordinal])
		if err != nil {
			return nil, err
		}
		if child.HasDevice {
			deviceIndex = child.DeviceIndex
		}
		node = child
	}

	return &TrieMatch{DeviceIndex: deviceIndex, NodesEvaluated: evaluated, IsComplete: true}, nil
}

// PropertyValue resolves the value of property propertyName for
// deviceIndex, binary-searching neither: the devices block is a flat
// fixed-stride array, one string-offset slot per declared property.
func (tp *TrieProvider) PropertyValue(deviceIndex uint32, propertyName string) (string, bool, error) {
	if deviceIndex >= tp.header.DeviceCount {
		return "", false, datasetFormatf("trie device index %d out of range [0,%d)", deviceIndex, tp.header.DeviceCount)
	}
	propIndex := -1
	for i := 0; i < int(tp.header.PropertyCount); i++ {
		name, err := tp.propertyName(i)
		if err != nil {
			return "", false, err
		}
		if name == propertyName {
			propIndex = i
			break
		}
	}
	if propIndex < 0 {
		return "", false, nil
	}

	stride := int64(8 * tp.header.PropertyCount)
	recordOffset := tp.header.Devices.Offset + int64(deviceIndex)*stride

	r, err := tp.pool.Acquire()
	if err != nil {
		return "", false, err
	}
	r.Seek(recordOffset + int64(propIndex)*8)
	strOffset, err := r.ReadI64()
	tp.pool.Release(r)
	if err != nil {
		return "", false, err
	}
	if strOffset < 0 {
		return "", false, nil
	}
	v, err := tp.strings.GetByOffset(strOffset)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Close drains the pool and releases the source.
func (tp *TrieProvider) Close() error {
	if err := tp.pool.Close(); err != nil {
		tp.log.Warnf("trie pool close: %v", err)
	}
	return tp.source.Close()
}
