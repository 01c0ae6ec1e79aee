// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/saferwall/uadetect/ulog"
)

// datasetState is the one-way lifecycle of §4.J: Created ->
// Initialised -> (InUse)* -> Disposed.
type datasetState int32

const (
	datasetCreated datasetState = iota
	datasetInitialised
	datasetDisposed
)

// Dataset owns every entity list built over one Source and is
// immutable once Initialised (§3 "Lifecycles", §4.J). Destroying it
// releases the Source once the reader Pool has drained.
type Dataset struct {
	state atomic.Int32

	source Source
	pool   *Pool
	header *Header
	log    *ulog.Helper

	strings    *variableList[string]
	components *fixedList[*Component]
	maps       *fixedList[*DataMap]
	properties *fixedList[*Property]
	values     *fixedList[*Value]
	profiles   *variableList[*Profile]
	signatures *variableList[*Signature]
	nodes      *variableList[*Node]

	componentPropertyIdx *fixedList[int32]
	mapPropertyIdx       *fixedList[int32]
	rankedSignatureIdx   *fixedList[int32]

	propertyNamesMu sync.Mutex
	propertyNames   []string // sorted, parallel to propertyNameIdx
	propertyNameIdx []int    // property index for propertyNames[i]

	componentsByIDMu sync.Mutex
	componentsByID   map[int32]*Component

	defaultSigMu sync.Mutex
	defaultSig   *Signature

	// refCount tracks in-flight Match calls against this dataset, used
	// by the background watcher (watcher.go) to know when it is safe
	// to dispose the old generation after a hot-swap (§5 scenario 6).
	refCount atomic.Int64
}

// OpenOptions configures Open.
type OpenOptions struct {
	Mode       Mode
	MaxReaders int // 0 = elastic
	CacheSize  int // per-list two-generation cache capacity; <= 0 selects 4096
	Logger     ulog.Logger
}

// Open reads the header, instantiates every entity list, and runs the
// per-entity Init phases that need cross-references (§4.J). The
// returned Dataset is Initialised and ready for Match calls.
func Open(source Source, opts OpenOptions) (*Dataset, error) {
	pool := NewPool(source, opts.MaxReaders, opts.Logger)

	r, err := pool.Acquire()
	if err != nil {
		return nil, err
	}
	h, err := readHeader(r)
	pool.Release(r)
	if err != nil {
		return nil, err
	}

	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = 4096
	}

	ds := &Dataset{source: source, pool: pool, header: h, log: ulog.NewHelper(opts.Logger)}

	ds.strings = newVariableList[string](pool, h.Strings.Offset, int(h.Strings.Count), cacheSize, "strings", decodeString)

	ds.components = newFixedList[*Component](pool, h.Components.Offset, componentRecordStride,
		int(h.Components.Count), 0, "components", decodeComponent(ds))

	ds.maps = newFixedList[*DataMap](pool, h.Maps.Offset, mapRecordStride,
		int(h.Maps.Count), 0, "maps", decodeMap(ds))

	ds.properties = newFixedList[*Property](pool, h.Properties.Offset, propertyRecordStride,
		int(h.Properties.Count), 0, "properties", decodeProperty(ds))

	ds.values = newFixedList[*Value](pool, h.Values.Offset, valueRecordStride,
		int(h.Values.Count), cacheSize, "values", decodeValue(ds))

	ds.profiles = newVariableList[*Profile](pool, h.Profiles.Offset, int(h.Profiles.Count), cacheSize, "profiles", decodeProfile(ds))

	if h.IsV32() {
		ds.signatures = newVariableList[*Signature](pool, h.Signatures.Offset, int(h.Signatures.Count), cacheSize, "signatures", decodeSignatureV32(ds))
	} else {
		ds.signatures = newVariableList[*Signature](pool, h.Signatures.Offset, int(h.Signatures.Count), cacheSize, "signatures", decodeSignatureV31(ds))
	}

	ds.nodes = newVariableList[*Node](pool, h.Nodes.Offset, int(h.Nodes.Count), cacheSize, "nodes", decodeNode(ds))

	ds.componentPropertyIdx = newFixedList[int32](pool, h.ComponentPropertyIdx.Offset, 4, int(h.ComponentPropertyIdx.Count), 0, "component-property-idx", decodeInt32)
	ds.mapPropertyIdx = newFixedList[int32](pool, h.MapPropertyIdx.Offset, 4, int(h.MapPropertyIdx.Count), 0, "map-property-idx", decodeInt32)
	ds.rankedSignatureIdx = newFixedList[int32](pool, h.RankedSignatureIdx.Offset, 4, int(h.RankedSignatureIdx.Count), 0, "ranked-signature-idx", decodeInt32)

	if err := ds.buildPropertyNameIndex(); err != nil {
		return nil, err
	}
	if err := ds.buildComponentIndex(); err != nil {
		return nil, err
	}
	if err := ds.profiles.buildIndex(); err != nil {
		return nil, err
	}
	if err := ds.signatures.buildIndex(); err != nil {
		return nil, err
	}

	ds.state.Store(int32(datasetInitialised))
	return ds, nil
}

func decodeInt32(r *Reader, offset int64) (int32, error) { return r.ReadI32() }

// checkUsable returns ErrDatasetDisposed once the dataset has been
// disposed (§4.J state machine).
func (ds *Dataset) checkUsable() error {
	if datasetState(ds.state.Load()) == datasetDisposed {
		return ErrDatasetDisposed
	}
	return nil
}

// buildPropertyNameIndex scans every Property once to build the
// sorted name -> index map used by Properties.ByName (§4.I).
func (ds *Dataset) buildPropertyNameIndex() error {
	ds.propertyNamesMu.Lock()
	defer ds.propertyNamesMu.Unlock()

	n := ds.properties.Count()
	names := make([]string, n)
	idx := make([]int, n)
	for i := 0; i < n; i++ {
		p, err := ds.properties.Get(i)
		if err != nil {
			return err
		}
		name, err := p.Name()
		if err != nil {
			return err
		}
		names[i] = name
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return names[idx[i]] < names[idx[j]] })
	sortedNames := make([]string, n)
	for i, pi := range idx {
		sortedNames[i] = names[pi]
	}
	ds.propertyNames = sortedNames
	ds.propertyNameIdx = idx
	return nil
}

// buildComponentIndex scans every Component once to build the
// ComponentId -> *Component map used throughout the entity graph.
func (ds *Dataset) buildComponentIndex() error {
	ds.componentsByIDMu.Lock()
	defer ds.componentsByIDMu.Unlock()

	m := make(map[int32]*Component, ds.components.Count())
	for i := 0; i < ds.components.Count(); i++ {
		c, err := ds.components.Get(i)
		if err != nil {
			return err
		}
		m[c.ComponentId] = c
	}
	ds.componentsByID = m
	return nil
}

func (ds *Dataset) componentByID(id int32) (*Component, error) {
	ds.componentsByIDMu.Lock()
	c, ok := ds.componentsByID[id]
	ds.componentsByIDMu.Unlock()
	if !ok {
		return nil, datasetFormatf("unknown component id %d", id)
	}
	return c, nil
}

// signatureByIndex resolves a signature by its logical index,
// matching Profile.signatureIndices (§3 Profile: "SignatureIndexCount
// then... signature-indices").
func (ds *Dataset) signatureByIndex(index int) (*Signature, error) {
	return ds.signatures.GetByIndex(index)
}

// Property looks up a Property by name, via binary search over the
// sorted property-name array, returning (nil, false) rather than failing when
// absent (§4.I, §7 "PropertyNotFound").
func (ds *Dataset) Property(name string) (*Property, bool) {
	ds.propertyNamesMu.Lock()
	names, idx := ds.propertyNames, ds.propertyNameIdx
	ds.propertyNamesMu.Unlock()

	i := sort.SearchStrings(names, name)
	if i >= len(names) || names[i] != name {
		return nil, false
	}
	p, err := ds.properties.Get(idx[i])
	if err != nil {
		return nil, false
	}
	return p, true
}

// Properties returns every Property in the dataset. When tier is
// non-empty, the result is filtered to the properties belonging to
// the Map named tier (§9 supplemented feature "Map/tier filtering").
func (ds *Dataset) Properties(tier string) ([]*Property, error) {
	if tier == "" {
		props := make([]*Property, ds.properties.Count())
		for i := range props {
			p, err := ds.properties.Get(i)
			if err != nil {
				return nil, err
			}
			props[i] = p
		}
		return props, nil
	}
	for i := 0; i < ds.maps.Count(); i++ {
		m, err := ds.maps.Get(i)
		if err != nil {
			return nil, err
		}
		name, err := m.Name()
		if err != nil {
			return nil, err
		}
		if name == tier {
			return m.Properties()
		}
	}
	return nil, datasetFormatf("unknown tier %q", tier)
}

// Components returns every Component in the dataset.
func (ds *Dataset) Components() ([]*Component, error) {
	out := make([]*Component, ds.components.Count())
	for i := range out {
		c, err := ds.components.Get(i)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// DefaultSignature builds the synthetic signature returned by the
// None strategy (§4.G step 6): one profile per component, each that
// component's DefaultProfile.
func (ds *Dataset) DefaultSignature() (*Signature, error) {
	ds.defaultSigMu.Lock()
	defer ds.defaultSigMu.Unlock()
	if ds.defaultSig != nil {
		return ds.defaultSig, nil
	}

	components, err := ds.Components()
	if err != nil {
		return nil, err
	}
	sig := &Signature{ds: ds, Offset: -1}
	profiles := make([]*Profile, 0, len(components))
	for _, c := range components {
		p, err := c.DefaultProfile()
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
		sig.profileOffsets = append(sig.profileOffsets, p.Offset)
	}
	sig.profiles = profiles
	sig.nodes = nil
	sig.NodeOffsets = nil
	zero := 0
	sig.length = &zero
	ds.defaultSig = sig
	return sig, nil
}

// NextUpdate is the dataset's declared next-update time (§6 "Provider
// API surface").
func (ds *Dataset) NextUpdate() (t struct{ Unix int64 }) {
	t.Unix = ds.header.NextUpdate.Unix()
	return t
}

// Header returns the parsed file header.
func (ds *Dataset) Header() *Header { return ds.header }

// MinUserAgentLength is the shortest UA length the dataset's
// signatures are built to recognise (§8 testable property #3).
func (ds *Dataset) MinUserAgentLength() int { return int(ds.header.MinUserAgentLength) }

// Close drains the pool and releases the source, transitioning the
// dataset to Disposed (§4.J). Using a Disposed dataset thereafter
// fails with ErrDatasetDisposed.
func (ds *Dataset) Close() error {
	ds.state.Store(int32(datasetDisposed))
	if err := ds.pool.Close(); err != nil {
		ds.log.Warnf("pool close: %v", err)
	}
	return ds.source.Close()
}

// acquireRef increments the in-flight Match reference count; release
// must be called exactly once per acquireRef (§5 "reference count
// reaches zero").
func (ds *Dataset) acquireRef() { ds.refCount.Add(1) }

func (ds *Dataset) releaseRef() int64 { return ds.refCount.Add(-1) }

// RefCount reports the number of in-flight Match calls against this
// dataset, polled by the background watcher before disposing a
// superseded generation (§5 "reference count reaches zero").
func (ds *Dataset) RefCount() int64 { return ds.refCount.Load() }
