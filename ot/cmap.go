package ot

import (
	"bytes"
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// CMapTable represents table 'cmap', which maps character codes to glyph
// indices. Subtables of formats 4, 12 and 14 are decoded into maps and may
// be edited; subtables of any other format are kept as raw bytes.
type CMapTable struct {
	tableBase
	Subtables []*CMapSubtable
}

func newCMapTable(tag Tag, b binarySegm, offset, size uint32) *CMapTable {
	t := &CMapTable{tableBase: makeTableBase(tag, b, offset, size)}
	t.self = t
	return t
}

// CMapSubtable is a single character-to-glyph mapping of a cmap table,
// identified by platform and encoding.
type CMapSubtable struct {
	PlatformID uint16
	EncodingID uint16
	Format     uint16
	Language   uint32
	Mapping    map[rune]GlyphIndex // formats 4 and 12
	UVS        map[rune][]UVSEntry // format 14, keyed by variation selector
	raw        []byte              // all other formats
}

// UVSEntry maps a base character to a glyph for one variation selector.
// An entry without a glyph is a default UVS entry: the base character's
// regular glyph is used.
type UVSEntry struct {
	Base  rune
	Glyph Option[GlyphIndex]
}

// NewCMapSubtable creates an empty, editable subtable. Format has to be one
// of 4, 12 or 14.
func NewCMapSubtable(platform, encoding, format uint16) *CMapSubtable {
	st := &CMapSubtable{
		PlatformID: platform,
		EncodingID: encoding,
		Format:     format,
	}
	if format == 14 {
		st.UVS = make(map[rune][]UVSEntry)
	} else {
		st.Mapping = make(map[rune]GlyphIndex)
	}
	return st
}

// Decoded is true if the subtable's content is accessible through
// Mapping or UVS.
func (st *CMapSubtable) Decoded() bool {
	return st.raw == nil
}

// Selectors returns the variation selectors of a format 14 subtable in
// ascending order.
func (st *CMapSubtable) Selectors() []rune {
	return slices.Sorted(maps.Keys(st.UVS))
}

func (st *CMapSubtable) String() string {
	return fmt.Sprintf("cmap(%d/%d format=%d)", st.PlatformID, st.EncodingID, st.Format)
}

// Subtable returns the first decoded subtable for a platform, encoding and
// format, or nil.
func (t *CMapTable) Subtable(platform, encoding, format uint16) *CMapSubtable {
	for _, st := range t.Subtables {
		if st.PlatformID == platform && st.EncodingID == encoding && st.Format == format && st.Decoded() {
			return st
		}
	}
	return nil
}

// AddSubtable appends a subtable. Subtables are sorted when the table is
// written.
func (t *CMapTable) AddSubtable(st *CMapSubtable) {
	t.Subtables = append(t.Subtables, st)
}

// --- Decoding --------------------------------------------------------------

func parseCMap(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	t := newCMapTable(tag, b, offset, size)
	r := newReader(b, 0)
	if version := r.u16(); version != 0 {
		ec.addError(tag, "Header", fmt.Sprintf("unsupported cmap version %d", version), SeverityCritical, offset)
		return nil, errFontFormat("cmap version")
	}
	n := int(r.u16())
	for i := 0; i < n; i++ {
		platform, encoding, suboffset := r.u16(), r.u16(), r.u32()
		if r.err != nil {
			ec.addError(tag, "EncodingRecords", "encoding records truncated", SeverityCritical, offset)
			return nil, errFontFormat("cmap encoding records")
		}
		st, err := parseCMapSubtable(b, int(suboffset))
		if err != nil {
			ec.addError(tag, "Subtable", fmt.Sprintf("subtable %d/%d: %v", platform, encoding, err),
				SeverityCritical, offset+suboffset)
			return nil, errFontFormat("cmap subtable")
		}
		st.PlatformID, st.EncodingID = platform, encoding
		tracer().Debugf("cmap subtable %d/%d has format %d", platform, encoding, st.Format)
		t.Subtables = append(t.Subtables, st)
	}
	return t, nil
}

// parseCMapSubtable determines the extent of a subtable by its format and
// decodes formats 4, 12 and 14.
func parseCMapSubtable(b binarySegm, offset int) (*CMapSubtable, error) {
	r := newReader(b, offset)
	st := &CMapSubtable{Format: r.u16()}
	var length int
	switch st.Format {
	case 0, 2, 4, 6:
		length = int(r.u16())
		st.Language = uint32(r.u16())
	case 8, 10, 12, 13:
		r.u16() // reserved
		length = int(r.u32())
		st.Language = r.u32()
	case 14:
		length = int(r.u32())
	default:
		return nil, fmt.Errorf("unknown format %d", st.Format)
	}
	if r.err != nil {
		return nil, errBufferBounds
	}
	data, err := b.view(offset, length)
	if err != nil && st.Format == 4 {
		// Some fonts state a wrong length for large format 4 subtables.
		data, err = b.from(offset)
	}
	if err != nil {
		return nil, fmt.Errorf("format %d: length %d exceeds table size", st.Format, length)
	}
	switch st.Format {
	case 4:
		st.Mapping, err = decodeFormat4(data)
	case 12:
		st.Mapping, err = decodeFormat12(data)
	case 14:
		st.UVS, err = decodeFormat14(data)
	default:
		st.raw = data
	}
	return st, err
}

func decodeFormat4(data binarySegm) (map[rune]GlyphIndex, error) {
	r := newReader(data, 6)
	segCount := int(r.u16()) / 2
	r.u16s(3) // searchRange, entrySelector, rangeShift
	endCode := r.u16s(segCount)
	r.u16() // reservedPad
	startCode := r.u16s(segCount)
	idDelta := r.u16s(segCount)
	rangeOffsetPos := r.pos
	idRangeOffset := r.u16s(segCount)
	if r.err != nil {
		return nil, fmt.Errorf("format 4: segment arrays truncated")
	}
	m := make(map[rune]GlyphIndex)
	for i := 0; i < segCount; i++ {
		start, end := int(startCode[i]), int(endCode[i])
		if start == 0xffff {
			continue
		}
		if end < start {
			return nil, fmt.Errorf("format 4: invalid segment %d", i)
		}
		for c := start; c <= end; c++ {
			var gid uint16
			if idRangeOffset[i] == 0 {
				gid = uint16(c) + idDelta[i]
			} else {
				at := rangeOffsetPos + 2*i + int(idRangeOffset[i]) + 2*(c-start)
				g, err := data.u16(at)
				if err != nil {
					return nil, fmt.Errorf("format 4: glyph index array out of bounds in segment %d", i)
				}
				if g != 0 {
					gid = g + idDelta[i]
				}
			}
			if gid != 0 {
				m[rune(c)] = GlyphIndex(gid)
			}
		}
	}
	return m, nil
}

func decodeFormat12(data binarySegm) (map[rune]GlyphIndex, error) {
	r := newReader(data, 12)
	n := int(r.u32())
	if 16+12*n > len(data) {
		return nil, fmt.Errorf("format 12: %d groups exceed subtable length", n)
	}
	m := make(map[rune]GlyphIndex)
	for i := 0; i < n; i++ {
		start, end, startGlyph := r.u32(), r.u32(), r.u32()
		if end < start || end > 0x10ffff {
			return nil, fmt.Errorf("format 12: invalid group %d", i)
		}
		for c := start; c <= end; c++ {
			if gid := startGlyph + (c - start); gid != 0 && gid <= MaxGlyphCount {
				m[rune(c)] = GlyphIndex(gid)
			}
		}
	}
	return m, r.err
}

func decodeFormat14(data binarySegm) (map[rune][]UVSEntry, error) {
	r := newReader(data, 6)
	n := int(r.u32())
	if 10+11*n > len(data) {
		return nil, fmt.Errorf("format 14: %d selector records exceed subtable length", n)
	}
	uvs := make(map[rune][]UVSEntry, n)
	for i := 0; i < n; i++ {
		selector := rune(r.u24())
		defaultOffset, nonDefaultOffset := r.u32(), r.u32()
		if r.err != nil {
			return nil, fmt.Errorf("format 14: selector records truncated")
		}
		var entries []UVSEntry
		if defaultOffset != 0 {
			dr := newReader(data, int(defaultOffset))
			ranges := int(dr.u32())
			for j := 0; j < ranges && dr.err == nil; j++ {
				start, additional := rune(dr.u24()), rune(dr.u8())
				for c := start; c <= start+additional; c++ {
					entries = append(entries, UVSEntry{Base: c, Glyph: None[GlyphIndex]()})
				}
			}
			if dr.err != nil {
				return nil, fmt.Errorf("format 14: default UVS table truncated")
			}
		}
		if nonDefaultOffset != 0 {
			nr := newReader(data, int(nonDefaultOffset))
			mappings := int(nr.u32())
			for j := 0; j < mappings && nr.err == nil; j++ {
				base, gid := rune(nr.u24()), GlyphIndex(nr.u16())
				entries = append(entries, UVSEntry{Base: base, Glyph: Some(gid)})
			}
			if nr.err != nil {
				return nil, fmt.Errorf("format 14: non-default UVS table truncated")
			}
		}
		slices.SortStableFunc(entries, func(a, b UVSEntry) int { return cmp.Compare(a.Base, b.Base) })
		uvs[selector] = append(uvs[selector], entries...)
	}
	return uvs, nil
}

// --- Encoding --------------------------------------------------------------

func (t *CMapTable) encode() ([]byte, error) {
	subtables := slices.Clone(t.Subtables)
	slices.SortStableFunc(subtables, func(a, b *CMapSubtable) int {
		return cmp.Or(
			cmp.Compare(a.PlatformID, b.PlatformID),
			cmp.Compare(a.EncodingID, b.EncodingID),
			cmp.Compare(a.Language, b.Language),
		)
	})
	encoded := make([][]byte, len(subtables))
	for i, st := range subtables {
		var err error
		if encoded[i], err = st.encode(); err != nil {
			return nil, fmt.Errorf("cmap subtable %d/%d: %w", st.PlatformID, st.EncodingID, err)
		}
	}
	w := &writer{}
	w.u16(0) // version
	w.u16(uint16(len(subtables)))
	offsets := make([]uint32, len(subtables))
	pos := uint32(4 + 8*len(subtables))
	var body writer
	for i := range subtables {
		// identical subtables share their data
		shared := slices.IndexFunc(encoded[:i], func(b []byte) bool { return bytes.Equal(b, encoded[i]) })
		if shared >= 0 {
			offsets[i] = offsets[shared]
			continue
		}
		offsets[i] = pos + uint32(body.len())
		body.raw(encoded[i])
		for body.len()%2 != 0 {
			body.u8(0)
		}
	}
	for i, st := range subtables {
		w.u16(st.PlatformID)
		w.u16(st.EncodingID)
		w.u32(offsets[i])
	}
	w.raw(body.bytes())
	return w.bytes(), nil
}

func (st *CMapSubtable) encode() ([]byte, error) {
	if st.raw != nil {
		return st.raw, nil
	}
	switch st.Format {
	case 4:
		return encodeFormat4(st.Mapping, st.Language)
	case 12:
		return encodeFormat12(st.Mapping, st.Language), nil
	case 14:
		return encodeFormat14(st.UVS), nil
	}
	return nil, fmt.Errorf("cannot encode format %d", st.Format)
}

type cmapSegment struct {
	start, end uint16
	delta      uint16
	array      bool
}

// encodeFormat4 writes delta segments for runs of at least 4 codes with a
// constant glyph delta, and glyph index array segments for everything else.
// The mandatory final segment maps 0xFFFF to glyph 0.
func encodeFormat4(m map[rune]GlyphIndex, language uint32) ([]byte, error) {
	if language > 0xffff {
		return nil, fmt.Errorf("format 4: language %d out of range", language)
	}
	var codes []uint16
	for c, gid := range m {
		if c >= 0 && c < 0xffff && gid != 0 {
			codes = append(codes, uint16(c))
		}
	}
	slices.Sort(codes)
	delta := func(c uint16) uint16 { return uint16(m[rune(c)]) - c }
	var segments []cmapSegment
	flush := func(from, to uint16, runs int) {
		if runs == 1 {
			segments = append(segments, cmapSegment{start: from, end: to, delta: delta(from)})
		} else {
			segments = append(segments, cmapSegment{start: from, end: to, array: true})
		}
	}
	for i := 0; i < len(codes); {
		j := i + 1
		for j < len(codes) && codes[j] == codes[j-1]+1 {
			j++
		}
		pending, runs := -1, 0
		for k := i; k < j; {
			d := delta(codes[k])
			l := k + 1
			for l < j && delta(codes[l]) == d {
				l++
			}
			if l-k >= 4 {
				if pending >= 0 {
					flush(codes[pending], codes[k-1], runs)
					pending, runs = -1, 0
				}
				segments = append(segments, cmapSegment{start: codes[k], end: codes[l-1], delta: d})
			} else {
				if pending < 0 {
					pending = k
				}
				runs++
			}
			k = l
		}
		if pending >= 0 {
			flush(codes[pending], codes[j-1], runs)
		}
		i = j
	}
	segments = append(segments, cmapSegment{start: 0xffff, end: 0xffff, delta: 1})

	segCount := len(segments)
	var glyphArray []uint16
	rangeOffsets := make([]uint16, segCount)
	for i, s := range segments {
		if !s.array {
			continue
		}
		off := 2 * (segCount - i + len(glyphArray))
		if off > 0xffff {
			return nil, fmt.Errorf("format 4: glyph index array too large")
		}
		rangeOffsets[i] = uint16(off)
		for c := int(s.start); c <= int(s.end); c++ {
			glyphArray = append(glyphArray, uint16(m[rune(c)]))
		}
	}
	length := 16 + 8*segCount + 2*len(glyphArray)
	if length > 0xffff {
		return nil, fmt.Errorf("format 4: subtable size %d exceeds 64 KiB", length)
	}
	searchRange, entrySelector, rangeShift := binarySearchParams(segCount, 2)
	w := &writer{buf: make([]byte, 0, length)}
	w.u16(4)
	w.u16(uint16(length))
	w.u16(uint16(language))
	w.u16(uint16(2 * segCount))
	w.u16(searchRange)
	w.u16(entrySelector)
	w.u16(rangeShift)
	for _, s := range segments {
		w.u16(s.end)
	}
	w.u16(0) // reservedPad
	for _, s := range segments {
		w.u16(s.start)
	}
	for _, s := range segments {
		w.u16(s.delta)
	}
	for _, off := range rangeOffsets {
		w.u16(off)
	}
	for _, g := range glyphArray {
		w.u16(g)
	}
	return w.bytes(), nil
}

func encodeFormat12(m map[rune]GlyphIndex, language uint32) []byte {
	codes := slices.Sorted(maps.Keys(m))
	type group struct{ start, end, glyph uint32 }
	var groups []group
	for _, c := range codes {
		gid := uint32(m[c])
		if gid == 0 {
			continue
		}
		if n := len(groups); n > 0 {
			g := &groups[n-1]
			if uint32(c) == g.end+1 && gid == g.glyph+(g.end+1-g.start) {
				g.end++
				continue
			}
		}
		groups = append(groups, group{start: uint32(c), end: uint32(c), glyph: gid})
	}
	w := &writer{buf: make([]byte, 0, 16+12*len(groups))}
	w.u16(12)
	w.u16(0) // reserved
	w.u32(uint32(16 + 12*len(groups)))
	w.u32(language)
	w.u32(uint32(len(groups)))
	for _, g := range groups {
		w.u32(g.start)
		w.u32(g.end)
		w.u32(g.glyph)
	}
	return w.bytes()
}

func encodeFormat14(uvs map[rune][]UVSEntry) []byte {
	selectors := slices.Sorted(maps.Keys(uvs))
	header := &writer{}
	data := &writer{}
	base := 10 + 11*len(selectors)
	header.u16(14)
	header.u32(0) // length, patched below
	header.u32(uint32(len(selectors)))
	for _, sel := range selectors {
		var defaults []rune
		var mappings []UVSEntry
		for _, e := range uvs[sel] {
			if e.Glyph.IsNone() {
				defaults = append(defaults, e.Base)
			} else {
				mappings = append(mappings, e)
			}
		}
		header.u24(uint32(sel))
		if len(defaults) == 0 {
			header.u32(0)
		} else {
			header.u32(uint32(base + data.len()))
			slices.Sort(defaults)
			defaults = slices.Compact(defaults)
			type uvsRange struct{ start, count rune }
			var ranges []uvsRange
			for _, c := range defaults {
				if n := len(ranges); n > 0 && ranges[n-1].start+ranges[n-1].count+1 == c && ranges[n-1].count < 255 {
					ranges[n-1].count++
					continue
				}
				ranges = append(ranges, uvsRange{start: c})
			}
			data.u32(uint32(len(ranges)))
			for _, r := range ranges {
				data.u24(uint32(r.start))
				data.u8(uint8(r.count))
			}
		}
		if len(mappings) == 0 {
			header.u32(0)
		} else {
			header.u32(uint32(base + data.len()))
			slices.SortStableFunc(mappings, func(a, b UVSEntry) int { return cmp.Compare(a.Base, b.Base) })
			mappings = slices.CompactFunc(mappings, func(a, b UVSEntry) bool { return a.Base == b.Base })
			data.u32(uint32(len(mappings)))
			for _, e := range mappings {
				data.u24(uint32(e.Base))
				data.u16(uint16(e.Glyph.Or(0)))
			}
		}
	}
	header.raw(data.bytes())
	b := header.bytes()
	put32(b[2:], uint32(len(b)))
	return b
}
