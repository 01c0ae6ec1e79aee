// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package uadetect identifies the device and browser characteristics
// associated with an HTTP User-Agent string by matching it against a
// precompiled database of device signatures.
//
// A Dataset wraps a binary data file (or an in-memory byte slice) laid
// out as a sequence of fixed- and variable-size record regions:
// strings, components, maps, properties, values, profiles, signatures,
// ranked-signature indices and nodes. A Provider opens a Dataset and
// exposes Match, the entry point that turns a candidate User-Agent
// into a ranked Signature via one of five fallback strategies (exact,
// numeric, nearest, closest, none).
package uadetect
