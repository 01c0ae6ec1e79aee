// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import "time"

// Method records how a Match was resolved (§4.G, GLOSSARY).
type Method int

const (
	MethodNone Method = iota
	MethodExact
	MethodNumeric
	MethodNearest
	MethodClosest
)

func (m Method) String() string {
	switch m {
	case MethodExact:
		return "Exact"
	case MethodNumeric:
		return "Numeric"
	case MethodNearest:
		return "Nearest"
	case MethodClosest:
		return "Closest"
	default:
		return "None"
	}
}

// Match is the immutable result of matching a User-Agent against a
// Dataset (§4.G, §4.I, §6).
type Match struct {
	Signature *Signature
	Method    Method

	// Difference is the strategy-specific distance from the UA to the
	// chosen Signature: 0 for Exact, the summed numeric delta for
	// Numeric, the count of signature nodes missing from the UA's node
	// path for Nearest, the count of mismatched bytes for Closest, and
	// the UA length for None.
	Difference int

	NodesEvaluated     int
	SignaturesCompared int
	Elapsed            time.Duration

	// IsComplete is false when the matcher exceeded its configured
	// node-evaluation budget and returned a best-so-far result (§5,
	// §7 MatchTimeout).
	IsComplete bool

	ds *Dataset
}

// Values returns the named property's resolved string values, or nil
// if the property is absent from this Match's signature (§6, §7
// "PropertyNotFound... returned as absent value, never as a
// failure").
func (m *Match) Values(propertyName string) []string {
	prop, ok := m.ds.Property(propertyName)
	if !ok {
		return nil
	}
	values, err := m.Signature.Values()
	if err != nil {
		return nil
	}
	var out []string
	for _, v := range values {
		p, err := v.Property()
		if err != nil || p.Index != prop.Index {
			continue
		}
		name, err := v.Name()
		if err != nil {
			continue
		}
		out = append(out, name)
	}
	return out
}

// DeviceId returns the Match's signature's DeviceId, or "" if reading
// its profiles fails. The None strategy's synthetic signature has no
// file offset but carries real profiles, so its DeviceId resolves.
func (m *Match) DeviceId() string {
	id, err := m.Signature.DeviceId()
	if err != nil {
		return ""
	}
	return id
}
