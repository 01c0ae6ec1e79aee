// Copyright 2024 uadetect authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package uadetect

import "encoding/binary"

// binBuilder assembles a little-endian v3.2 data file byte-for-byte,
// mirroring the layout readHeader/decode* expect. Tests build a tiny
// but representative dataset rather than shipping a fixture file.
type binBuilder struct {
	buf []byte
}

func (b *binBuilder) offset() int64 { return int64(len(b.buf)) }

func (b *binBuilder) u8(v uint8) { b.buf = append(b.buf, v) }

func (b *binBuilder) bytes(bs []byte) { b.buf = append(b.buf, bs...) }

func (b *binBuilder) u16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *binBuilder) u32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *binBuilder) u64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *binBuilder) i32(v int32) { b.u32(uint32(v)) }
func (b *binBuilder) i64(v int64) { b.u64(uint64(v)) }

// str appends a length-prefixed String record and returns its offset.
func (b *binBuilder) str(s string) int64 {
	off := b.offset()
	b.u32(uint32(len(s)))
	b.bytes([]byte(s))
	return off
}

func putU32At(buf []byte, pos int, v uint32) { binary.LittleEndian.PutUint32(buf[pos:], v) }
func putI64At(buf []byte, pos int, v int64)  { binary.LittleEndian.PutUint64(buf[pos:], uint64(v)) }

// headerLen is the fixed byte size of the file header: see readHeader.
const headerLen = 4 + 2 + 2 + 8 + 8 + 8 + 1 + 2 + 2 + 2 + 11*(4+8)

// regionFieldOffset returns the byte position, within the header, of
// region i's (count, offset) pair, in the order readHeader lists them:
// Strings, Components, ComponentPropertyIdx, Maps, MapPropertyIdx,
// Properties, Values, Profiles, Signatures, RankedSignatureIdx, Nodes.
func regionFieldOffset(i int) int { return 39 + i*12 }

const (
	regionStrings = iota
	regionComponents
	regionComponentPropertyIdx
	regionMaps
	regionMapPropertyIdx
	regionProperties
	regionValues
	regionProfiles
	regionSignatures
	regionRankedSignatureIdx
	regionNodes
)

func (b *binBuilder) patchRegion(i int, count uint32, offset int64) {
	pos := regionFieldOffset(i)
	putU32At(b.buf, pos, count)
	putI64At(b.buf, pos+4, offset)
}

// testOffsets names the file offsets of interest in the dataset built
// by buildTestDataset, used to assert expected discovery paths.
type testOffsets struct {
	profile0                     int64
	nodeAndroid, nodeMobile      int64
	nodeTablet, nodeZebra        int64
	sigAndroid, sigAndroidMobile int64
	sigTablet                    int64
}

// buildTestDataset assembles an in-memory v3.2 dataset:
//
//	component Hardware (id 0), property IsMobile (values True/False),
//	one profile (id 100), and a tiny trie:
//
//	  root -- "Android" (rank 5) -- "Mobile" (child)
//	       \- "Tablet" (child of Android)
//	       \- "Zebra"  (root sibling, referenced by no signature)
//
//	signatures: [Android] rank 5, [Android,Mobile] rank 1,
//	[Tablet] rank 2.
func buildTestDataset() ([]byte, testOffsets) {
	b := &binBuilder{buf: make([]byte, headerLen)}

	// --- magic + version + dates + misc ---
	putU32At(b.buf, 0, Magic)
	binary.LittleEndian.PutUint16(b.buf[4:], VersionMajor32)
	binary.LittleEndian.PutUint16(b.buf[6:], VersionMinor32)
	putI64At(b.buf, 8, 1700000000)  // published
	putI64At(b.buf, 16, 1800000000) // nextUpdate
	putI64At(b.buf, 24, -1)         // copyrightOffset (none)
	b.buf[32] = 0                   // age
	binary.LittleEndian.PutUint16(b.buf[33:], 4) // minUserAgentLength
	binary.LittleEndian.PutUint16(b.buf[35:], 0) // maxSignatureProfiles (v3.2: unused)
	binary.LittleEndian.PutUint16(b.buf[37:], 0) // maxSignatureNodes (v3.2: unused)

	// --- strings ---
	stringsBase := b.offset()
	sHardware := b.str("Hardware")
	sIsMobile := b.str("IsMobile")
	sTrue := b.str("True")
	sFalse := b.str("False")
	stringsCount := uint32(4)

	// --- properties (fixed stride) ---
	propertiesBase := b.offset()
	// IsMobile: nameOffset, descOffset(-1), categoryOffset(-1), urlOffset(-1), jsNameOffset(-1)
	b.i64(sIsMobile)
	b.i64(-1)
	b.i64(-1)
	b.i64(-1)
	b.i64(-1)
	b.i32(0)    // DisplayOrder
	b.u8(0)     // flags
	b.u8(uint8(ValueTypeBool))
	b.i32(0)    // DefaultValueIndex
	b.i32(0)    // ComponentId
	b.i32(0)    // MapCount
	b.i32(0)    // FirstMapIndex
	b.i32(0)    // FirstValueIndex
	b.i32(1)    // LastValueIndex
	propertiesCount := uint32(1)

	// --- values (fixed stride) ---
	valuesBase := b.offset()
	b.i64(sTrue)
	b.i64(-1)
	b.i64(-1)
	b.i32(0) // PropertyIndex
	b.i64(sFalse)
	b.i64(-1)
	b.i64(-1)
	b.i32(0)
	valuesCount := uint32(2)

	// --- componentPropertyIdx (fixed int32 list) ---
	componentPropertyIdxBase := b.offset()
	b.i32(0) // property index 0 belongs to component Hardware
	componentPropertyIdxCount := uint32(1)

	// --- mapPropertyIdx: empty ---
	mapPropertyIdxBase := b.offset()
	mapPropertyIdxCount := uint32(0)

	// --- maps: empty ---
	mapsBase := b.offset()
	mapsCount := uint32(0)

	// --- profiles (variable) ---
	profilesBase := b.offset()
	profile0 := b.offset()
	b.i32(0)   // ComponentId
	b.i32(100) // ProfileId
	b.i32(1)   // valueCount
	b.i32(0)   // sigCount
	b.i32(0)   // valueIndices[0] = True
	profilesCount := uint32(1)

	// --- components (fixed stride) ---
	componentsBase := b.offset()
	b.i32(0)        // ComponentId
	b.i64(sHardware) // nameOffset
	b.i64(profile0) // DefaultProfileOffset
	b.i32(1)        // PropertyCount
	b.i32(0)        // FirstPropertyIndex
	componentsCount := uint32(1)

	// --- nodes (variable) ---
	// Mobile/Tablet are children of Android but must be written before it
	// to make their offsets known for Android's Children array; their
	// ParentOffset is a placeholder, patched once Android's offset exists.
	nodesBase := b.offset()

	nodeMobile := b.offset()
	writeNode(b, 0, 7, "Mobile", nil, 1)

	nodeTablet := b.offset()
	writeNode(b, 0, 7, "Tablet", nil, 1)

	nodeZebra := b.offset()
	writeNode(b, noParent, 0, "Zebra", nil, 0)

	nodeAndroid := b.offset()
	writeNode(b, noParent, 0, "Android", []nodeChildSpec{
		{Byte: 'M', Offset: nodeMobile},
		{Byte: 'T', Offset: nodeTablet},
	}, 1)

	putI64At(b.buf, int(nodeMobile), nodeAndroid)
	putI64At(b.buf, int(nodeTablet), nodeAndroid)

	nodesCount := uint32(4)

	// --- signatures (variable, v3.2) ---
	signaturesBase := b.offset()

	sigAndroid := b.offset()
	writeSignatureV32(b, []int64{profile0}, []int64{nodeAndroid}, 5)

	sigAndroidMobile := b.offset()
	writeSignatureV32(b, []int64{profile0}, []int64{nodeAndroid, nodeMobile}, 1)

	sigTablet := b.offset()
	writeSignatureV32(b, []int64{profile0}, []int64{nodeTablet}, 2)

	signaturesCount := uint32(3)

	// --- rankedSignatureIdx: empty, unused by any reader ---
	rankedSignatureIdxBase := b.offset()
	rankedSignatureIdxCount := uint32(0)

	// --- patch header regions ---
	b.patchRegion(regionStrings, stringsCount, stringsBase)
	b.patchRegion(regionComponents, componentsCount, componentsBase)
	b.patchRegion(regionComponentPropertyIdx, componentPropertyIdxCount, componentPropertyIdxBase)
	b.patchRegion(regionMaps, mapsCount, mapsBase)
	b.patchRegion(regionMapPropertyIdx, mapPropertyIdxCount, mapPropertyIdxBase)
	b.patchRegion(regionProperties, propertiesCount, propertiesBase)
	b.patchRegion(regionValues, valuesCount, valuesBase)
	b.patchRegion(regionProfiles, profilesCount, profilesBase)
	b.patchRegion(regionSignatures, signaturesCount, signaturesBase)
	b.patchRegion(regionRankedSignatureIdx, rankedSignatureIdxCount, rankedSignatureIdxBase)
	b.patchRegion(regionNodes, nodesCount, nodesBase)

	return b.buf, testOffsets{
		profile0:          profile0,
		nodeAndroid:       nodeAndroid,
		nodeMobile:        nodeMobile,
		nodeTablet:        nodeTablet,
		nodeZebra:         nodeZebra,
		sigAndroid:        sigAndroid,
		sigAndroidMobile:  sigAndroidMobile,
		sigTablet:         sigTablet,
	}
}

type nodeChildSpec struct {
	Byte   byte
	Offset int64
}

// writeNode appends one variable-size Node record (no numeric
// children; v3.2 header always present).
func writeNode(b *binBuilder, parentOffset int64, position int32, chars string, children []nodeChildSpec, rankedSigCount int32) {
	b.i64(parentOffset)
	b.i32(position)
	b.u16(uint16(len(chars)))
	b.bytes([]byte(chars))
	b.u16(uint16(len(children)))
	for _, c := range children {
		b.u8(c.Byte)
		b.i64(c.Offset)
	}
	b.u16(0) // numericCount
	b.i32(rankedSigCount)
}

// writeSignatureV32 appends one variable-size v3.2 Signature record.
func writeSignatureV32(b *binBuilder, profileOffsets, nodeOffsets []int64, rank int32) {
	b.u16(uint16(len(profileOffsets)))
	for _, off := range profileOffsets {
		b.i64(off)
	}
	b.u16(uint16(len(nodeOffsets)))
	for _, off := range nodeOffsets {
		b.i64(off)
	}
	b.i32(rank)
}

// trieHeaderLen is the fixed byte size of a trie file header: see
// readTrieHeader.
const trieHeaderLen = 4 + 8 + 4 + 4 + 8 + 5*(4+8) + 8

func trieRegionFieldOffset(i int) int { return 28 + i*12 }

const (
	trieRegionStrings = iota
	trieRegionProperties
	trieRegionDevices
	trieRegionLookupLists
	trieRegionNodes
)

func (b *binBuilder) patchTrieRegion(i int, count uint32, offset int64) {
	pos := trieRegionFieldOffset(i)
	putU32At(b.buf, pos, count)
	putI64At(b.buf, pos+4, offset)
}

// buildTestTrie assembles a tiny trie-format dataset: one property
// ("IsMobile"), two devices, and a two-node trie where byte 'A'
// switches from device 0 to device 1.
func buildTestTrie() []byte {
	b := &binBuilder{buf: make([]byte, trieHeaderLen)}

	putU32At(b.buf, 0, TrieMagic)
	putI64At(b.buf, 4, -1) // CopyrightOffset
	binary.LittleEndian.PutUint32(b.buf[12:], 1) // PropertyCount
	binary.LittleEndian.PutUint32(b.buf[16:], 2) // DeviceCount

	stringsBase := b.offset()
	sProp := b.str("IsMobile")
	sVal0 := b.str("ValueZero")
	sVal1 := b.str("ValueOne")
	stringsCount := uint32(3)

	propertiesBase := b.offset()
	b.i64(sProp)
	propertiesCount := uint32(1)

	devicesBase := b.offset()
	b.i64(sVal0) // device 0
	b.i64(sVal1) // device 1
	devicesCount := uint32(2)

	lookupListsBase := b.offset()
	childLookup := b.offset()
	b.u8(1) // Low
	b.u8(0) // High < Low => empty table
	rootLookup := b.offset()
	b.u8('A') // Low
	b.u8('A') // High
	b.u8(0)   // table['A'] = ordinal 0

	nodesBase := b.offset()

	childNode := b.offset()
	b.i64(childLookup | trieDeviceBit)
	b.u32(1) // DeviceIndex
	b.u8(0)  // childCount
	b.u8(16) // widthCode

	rootNode := b.offset()
	b.i64(rootLookup | trieDeviceBit)
	b.u32(0) // DeviceIndex
	b.u8(1)  // childCount
	b.u8(16) // widthCode
	b.u16(uint16(childNode))

	nodesLength := b.offset() - nodesBase

	putI64At(b.buf, 20, rootNode) // RootOffset
	b.patchTrieRegion(trieRegionStrings, stringsCount, stringsBase)
	b.patchTrieRegion(trieRegionProperties, propertiesCount, propertiesBase)
	b.patchTrieRegion(trieRegionDevices, devicesCount, devicesBase)
	b.patchTrieRegion(trieRegionLookupLists, 0, lookupListsBase)
	b.patchTrieRegion(trieRegionNodes, 2, nodesBase)
	putI64At(b.buf, 88, nodesLength)

	return b.buf
}
