// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

// ValueType is a Property's declared value kind (§3).
type ValueType uint8

const (
	ValueTypeString ValueType = iota
	ValueTypeInt
	ValueTypeDouble
	ValueTypeBool
	ValueTypeJavaScript
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeString:
		return "String"
	case ValueTypeInt:
		return "Int"
	case ValueTypeDouble:
		return "Double"
	case ValueTypeBool:
		return "Bool"
	case ValueTypeJavaScript:
		return "JavaScript"
	default:
		return "Unknown"
	}
}
