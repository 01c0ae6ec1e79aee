// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import "sync"

// Component is an axis of the device — Hardware, Software, Browser,
// Crawler — against which Profiles are defined (§3, GLOSSARY).
type Component struct {
	ds *Dataset

	ComponentId          int32
	nameOffset           int64
	DefaultProfileOffset int64
	PropertyCount        int32
	FirstPropertyIndex   int32

	mu         sync.Mutex
	name       *string
	properties []*Property
}

// componentRecordStride is the fixed byte size of one Component
// record.
const componentRecordStride = 4 + 8 + 8 + 4 + 4

func decodeComponent(ds *Dataset) func(r *Reader, offset int64) (*Component, error) {
	return func(r *Reader, offset int64) (*Component, error) {
		c := &Component{ds: ds}
		var err error
		if c.ComponentId, err = r.ReadI32(); err != nil {
			return nil, err
		}
		if c.nameOffset, err = r.ReadI64(); err != nil {
			return nil, err
		}
		if c.DefaultProfileOffset, err = r.ReadI64(); err != nil {
			return nil, err
		}
		if c.PropertyCount, err = r.ReadI32(); err != nil {
			return nil, err
		}
		if c.FirstPropertyIndex, err = r.ReadI32(); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Name resolves and memoises the component's name.
func (c *Component) Name() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.name != nil {
		return *c.name, nil
	}
	s, err := c.ds.stringAt(c.nameOffset)
	if err != nil {
		return "", err
	}
	c.name = &s
	return s, nil
}

// Properties resolves every Property belonging to this component, via
// the shared componentPropertyIdx index region.
func (c *Component) Properties() ([]*Property, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.properties != nil {
		return c.properties, nil
	}
	props := make([]*Property, 0, c.PropertyCount)
	for i := int32(0); i < c.PropertyCount; i++ {
		propIndex, err := c.ds.componentPropertyIdx.Get(int(c.FirstPropertyIndex + i))
		if err != nil {
			return nil, err
		}
		prop, err := c.ds.properties.Get(int(propIndex))
		if err != nil {
			return nil, err
		}
		props = append(props, prop)
	}
	c.properties = props
	return props, nil
}

// DefaultProfile resolves this component's default Profile, used to
// build the dataset-wide default signature (§4.G step 6).
func (c *Component) DefaultProfile() (*Profile, error) {
	return c.ds.profiles.GetByOffset(c.DefaultProfileOffset)
}
