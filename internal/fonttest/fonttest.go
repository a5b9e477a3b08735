/*
Package fonttest synthesizes small TrueType fonts in memory for tests.

Fonts are assembled from raw bytes, independently of package ot, so that
the parser and the writer can be checked against a second implementation of
the binary format.
*/
package fonttest

import (
	"encoding/binary"
	"maps"
	"slices"
	"sort"
)

// Glyph is a glyph of a synthesized font. A glyph with zero width and height
// has no outline.
type Glyph struct {
	Name    string
	Advance uint16
	Width   int16 // width of a rectangular outline
	Height  int16 // height of a rectangular outline
}

// UVS is a variation sequence for a format 14 cmap subtable. A default
// sequence has no glyph of its own.
type UVS struct {
	Base     rune
	Selector rune
	Default  bool
	Glyph    uint16
}

// Font describes a synthetic TrueType font.
type Font struct {
	Glyphs       []Glyph
	BMP          map[rune]uint16 // cmap 3/1 format 4, nil for none
	Full         map[rune]uint16 // cmap 3/10 format 12, nil for none
	Sequences    []UVS           // cmap 0/5 format 14, empty for none
	Vertical     bool            // add vhea and vmtx
	PostNames    bool            // post version 2.0 instead of 3.0
	ShortLoca    bool            // loca in short format
	LongHMetrics int             // numberOfHMetrics, 0 for all glyphs
	Tables       map[string][]byte
}

// Simple returns a font with glyphs .notdef, space, A and B, mapped by a
// format 4 subtable only.
func Simple() *Font {
	return &Font{
		Glyphs: []Glyph{
			{Name: ".notdef", Advance: 500, Width: 400, Height: 700},
			{Name: "space", Advance: 250},
			{Name: "A", Advance: 600, Width: 550, Height: 700},
			{Name: "B", Advance: 600, Width: 500, Height: 700},
		},
		BMP:       map[rune]uint16{' ': 1, 'A': 2, 'B': 3},
		PostNames: true,
		ShortLoca: true,
	}
}

// Bytes assembles the font.
func (f *Font) Bytes() []byte {
	tables := map[string][]byte{
		"head": f.head(),
		"hhea": f.hea(false),
		"maxp": f.maxp(),
		"hmtx": f.mtx(false),
		"cmap": f.cmap(),
		"post": f.post(),
		"OS/2": f.os2(),
		"name": {0, 0, 0, 0, 0, 6},
	}
	tables["glyf"], tables["loca"] = f.glyf()
	if f.Vertical {
		tables["vhea"] = f.hea(true)
		tables["vmtx"] = f.mtx(true)
	}
	maps.Copy(tables, f.Tables)
	return sfnt(tables)
}

// sfnt lays out the tables in tag order, with table records sorted by tag.
func sfnt(tables map[string][]byte) []byte {
	tags := slices.Sorted(maps.Keys(tables))
	n := len(tags)
	sel := 0
	for 1<<(sel+1) <= n {
		sel++
	}
	out := be32(nil, 0x00010000)
	out = be16(out, uint16(n), uint16(16<<sel), uint16(sel), uint16(16*n-16<<sel))
	offset := 12 + 16*n
	var body []byte
	for _, tag := range tags {
		data := tables[tag]
		out = append(out, tag...)
		out = be32(out, checksum(data), uint32(offset+len(body)), uint32(len(data)))
		body = append(body, data...)
		for len(body)%4 != 0 {
			body = append(body, 0)
		}
	}
	return append(out, body...)
}

func (f *Font) head() []byte {
	b := make([]byte, 54)
	binary.BigEndian.PutUint32(b[0:], 0x00010000)
	binary.BigEndian.PutUint32(b[4:], 0x00010000) // font revision
	binary.BigEndian.PutUint32(b[12:], 0x5F0F3CF5)
	binary.BigEndian.PutUint16(b[18:], 1000) // units per em
	binary.BigEndian.PutUint16(b[46:], 8)    // lowest rec ppem
	binary.BigEndian.PutUint16(b[48:], 2)    // font direction hint
	if !f.ShortLoca {
		binary.BigEndian.PutUint16(b[50:], 1)
	}
	return b
}

func (f *Font) numberOfHMetrics() int {
	if f.LongHMetrics > 0 && f.LongHMetrics <= len(f.Glyphs) {
		return f.LongHMetrics
	}
	return len(f.Glyphs)
}

func (f *Font) hea(vertical bool) []byte {
	b := make([]byte, 36)
	binary.BigEndian.PutUint32(b[0:], 0x00010000)
	binary.BigEndian.PutUint16(b[4:], 800)    // ascender
	binary.BigEndian.PutUint16(b[6:], 0xff38) // descender -200
	var adv uint16
	for _, g := range f.Glyphs {
		adv = max(adv, g.Advance)
	}
	binary.BigEndian.PutUint16(b[10:], adv)
	binary.BigEndian.PutUint16(b[18:], 1) // caret slope rise
	n := f.numberOfHMetrics()
	if vertical {
		n = len(f.Glyphs)
	}
	binary.BigEndian.PutUint16(b[34:], uint16(n))
	return b
}

func (f *Font) maxp() []byte {
	b := make([]byte, 32)
	binary.BigEndian.PutUint32(b[0:], 0x00010000)
	binary.BigEndian.PutUint16(b[4:], uint16(len(f.Glyphs)))
	binary.BigEndian.PutUint16(b[6:], 4)  // max points
	binary.BigEndian.PutUint16(b[8:], 1)  // max contours
	binary.BigEndian.PutUint16(b[14:], 2) // max zones
	return b
}

// mtx writes long metrics for the first numberOfHMetrics glyphs and side
// bearings for the others. Vertical metrics always use long records.
func (f *Font) mtx(vertical bool) []byte {
	var b []byte
	n := f.numberOfHMetrics()
	if vertical {
		n = len(f.Glyphs)
	}
	for i, g := range f.Glyphs {
		if i < n {
			b = be16(b, g.Advance)
		}
		b = be16(b, 0)
	}
	return b
}

func (g Glyph) outline() []byte {
	if g.Width == 0 || g.Height == 0 {
		return nil
	}
	w, h := uint16(g.Width), uint16(g.Height)
	b := be16(nil, 1, 0, 0, w, h) // one contour and bounding box
	b = be16(b, 3, 0)              // end point, no instructions
	b = append(b, 1, 1, 1, 1)      // on-curve points, long coordinates
	b = be16(b, 0, 0, w, 0)        // x deltas
	return be16(b, 0, h, 0, -h)    // y deltas
}

func (f *Font) glyf() (glyf, loca []byte) {
	offsets := []int{0}
	for _, g := range f.Glyphs {
		glyf = append(glyf, g.outline()...)
		for len(glyf)%4 != 0 {
			glyf = append(glyf, 0)
		}
		offsets = append(offsets, len(glyf))
	}
	for _, off := range offsets {
		if f.ShortLoca {
			loca = be16(loca, uint16(off/2))
		} else {
			loca = be32(loca, uint32(off))
		}
	}
	return glyf, loca
}

func (f *Font) post() []byte {
	b := make([]byte, 32)
	if !f.PostNames {
		binary.BigEndian.PutUint32(b, 0x00030000)
		return b
	}
	binary.BigEndian.PutUint32(b, 0x00020000)
	b = be16(b, uint16(len(f.Glyphs)))
	var pool []byte
	custom := 0
	for _, g := range f.Glyphs {
		if g.Name == ".notdef" {
			b = be16(b, 0)
			continue
		}
		b = be16(b, uint16(258+custom))
		custom++
		pool = append(pool, byte(len(g.Name)))
		pool = append(pool, g.Name...)
	}
	return append(b, pool...)
}

func (f *Font) os2() []byte {
	b := make([]byte, 96)
	binary.BigEndian.PutUint16(b[0:], 4)
	binary.BigEndian.PutUint16(b[4:], 400) // weight class
	binary.BigEndian.PutUint16(b[6:], 5)   // width class
	binary.BigEndian.PutUint32(b[42:], 1)  // Basic Latin
	binary.BigEndian.PutUint32(b[78:], 1)  // Latin 1
	return b
}

func (f *Font) cmap() []byte {
	type subtable struct {
		platform, encoding uint16
		data               []byte
	}
	var subtables []subtable
	if len(f.Sequences) > 0 {
		subtables = append(subtables, subtable{0, 5, f.format14()})
	}
	if f.BMP != nil {
		subtables = append(subtables, subtable{3, 1, format4(f.BMP)})
	}
	if f.Full != nil {
		subtables = append(subtables, subtable{3, 10, format12(f.Full)})
	}
	b := be16(nil, 0, uint16(len(subtables)))
	offset := 4 + 8*len(subtables)
	var body []byte
	for _, st := range subtables {
		b = be16(b, st.platform, st.encoding)
		b = be32(b, uint32(offset+len(body)))
		body = append(body, st.data...)
	}
	return append(b, body...)
}

// format4 writes one segment per code point.
func format4(m map[rune]uint16) []byte {
	codes := slices.Sorted(maps.Keys(m))
	codes = slices.DeleteFunc(codes, func(r rune) bool { return r >= 0xffff })
	segX2 := 2 * (len(codes) + 1)
	var ends, starts, deltas, ranges []byte
	for _, c := range codes {
		ends = be16(ends, uint16(c))
		starts = be16(starts, uint16(c))
		deltas = be16(deltas, m[c]-uint16(c))
		ranges = be16(ranges, 0)
	}
	ends = be16(ends, 0xffff)
	starts = be16(starts, 0xffff)
	deltas = be16(deltas, 1)
	ranges = be16(ranges, 0)
	length := 16 + 4*segX2
	sel := 0
	for 1<<(sel+1) <= segX2/2 {
		sel++
	}
	b := be16(nil, 4, uint16(length), 0, uint16(segX2), uint16(2<<sel), uint16(sel), uint16(segX2-2<<sel))
	b = append(b, ends...)
	b = be16(b, 0)
	b = append(b, starts...)
	b = append(b, deltas...)
	return append(b, ranges...)
}

// format12 writes one group per code point.
func format12(m map[rune]uint16) []byte {
	codes := slices.Sorted(maps.Keys(m))
	b := be16(nil, 12, 0)
	b = be32(b, uint32(16+12*len(codes)), 0, uint32(len(codes)))
	for _, c := range codes {
		b = be32(b, uint32(c), uint32(c), uint32(m[c]))
	}
	return b
}

func (f *Font) format14() []byte {
	bySelector := make(map[rune][]UVS)
	for _, s := range f.Sequences {
		bySelector[s.Selector] = append(bySelector[s.Selector], s)
	}
	selectors := slices.Sorted(maps.Keys(bySelector))
	header := 10 + 11*len(selectors)
	b := be16(nil, 14)
	b = be32(b, 0, uint32(len(selectors)))
	var body []byte
	for _, sel := range selectors {
		seqs := bySelector[sel]
		sort.Slice(seqs, func(i, j int) bool { return seqs[i].Base < seqs[j].Base })
		var defaults, others []UVS
		for _, s := range seqs {
			if s.Default {
				defaults = append(defaults, s)
			} else {
				others = append(others, s)
			}
		}
		b = be24(b, uint32(sel))
		if len(defaults) > 0 {
			b = be32(b, uint32(header+len(body)))
			body = be32(body, uint32(len(defaults)))
			for _, s := range defaults {
				body = be24(body, uint32(s.Base))
				body = append(body, 0)
			}
		} else {
			b = be32(b, 0)
		}
		if len(others) > 0 {
			b = be32(b, uint32(header+len(body)))
			body = be32(body, uint32(len(others)))
			for _, s := range others {
				body = be24(body, uint32(s.Base))
				body = be16(body, s.Glyph)
			}
		} else {
			b = be32(b, 0)
		}
	}
	b = append(b, body...)
	binary.BigEndian.PutUint32(b[2:], uint32(len(b)))
	return b
}

func checksum(data []byte) uint32 {
	var sum uint32
	for i := 0; i < len(data); i += 4 {
		var w [4]byte
		copy(w[:], data[i:])
		sum += binary.BigEndian.Uint32(w[:])
	}
	return sum
}

func be16(b []byte, vs ...uint16) []byte {
	for _, v := range vs {
		b = binary.BigEndian.AppendUint16(b, v)
	}
	return b
}

func be24(b []byte, v uint32) []byte {
	return append(b, byte(v>>16), byte(v>>8), byte(v))
}

func be32(b []byte, vs ...uint32) []byte {
	for _, v := range vs {
		b = binary.BigEndian.AppendUint32(b, v)
	}
	return b
}
