// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

// decodeString reads one length-prefixed String record (§3) and
// reports the bytes consumed, for use as a variableList decode func.
func decodeString(r *Reader, offset int64) (string, int64, error) {
	s, err := r.ReadLengthPrefixedString()
	if err != nil {
		return "", 0, err
	}
	return s, 4 + int64(len(s)), nil
}

// stringAt resolves a string-region offset to its value, going
// through the shared strings cache so repeated references to the same
// name (e.g. a popular property name) are memoised.
func (ds *Dataset) stringAt(offset int64) (string, error) {
	if offset < 0 {
		return "", nil
	}
	return ds.strings.GetByOffset(offset)
}
