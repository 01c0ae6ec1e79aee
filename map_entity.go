// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import "sync"

// DataMap associates a data-file region name with the properties that
// belong to it, supporting Lite/Premium/Enterprise tiering (§3, §9
// supplemented feature "Map/tier filtering").
type DataMap struct {
	ds *Dataset

	nameOffset         int64
	PropertyCount      int32
	FirstPropertyIndex int32

	mu         sync.Mutex
	name       *string
	properties []*Property
}

// mapRecordStride is the fixed byte size of one Map record.
const mapRecordStride = 8 + 4 + 4

func decodeMap(ds *Dataset) func(r *Reader, offset int64) (*DataMap, error) {
	return func(r *Reader, offset int64) (*DataMap, error) {
		m := &DataMap{ds: ds}
		var err error
		if m.nameOffset, err = r.ReadI64(); err != nil {
			return nil, err
		}
		if m.PropertyCount, err = r.ReadI32(); err != nil {
			return nil, err
		}
		if m.FirstPropertyIndex, err = r.ReadI32(); err != nil {
			return nil, err
		}
		return m, nil
	}
}

// Name resolves the map's tier name (e.g. "Lite", "Premium").
func (m *DataMap) Name() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.name != nil {
		return *m.name, nil
	}
	s, err := m.ds.stringAt(m.nameOffset)
	if err != nil {
		return "", err
	}
	m.name = &s
	return s, nil
}

// Properties resolves every Property belonging to this tier.
func (m *DataMap) Properties() ([]*Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.properties != nil {
		return m.properties, nil
	}
	props := make([]*Property, 0, m.PropertyCount)
	for i := int32(0); i < m.PropertyCount; i++ {
		propIndex, err := m.ds.mapPropertyIdx.Get(int(m.FirstPropertyIndex + i))
		if err != nil {
			return nil, err
		}
		prop, err := m.ds.properties.Get(int(propIndex))
		if err != nil {
			return nil, err
		}
		props = append(props, prop)
	}
	m.properties = props
	return props, nil
}
