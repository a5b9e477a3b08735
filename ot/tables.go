package ot

import (
	"fmt"
	"slices"
)

// --- Concrete table implementations ----------------------------------------

// HeadTable gives global information about the font.
// Only a small subset of fields are made public by HeadTable, as they are
// needed for consistency-checks and for re-writing the font. All other fields
// are written back as they were read.
type HeadTable struct {
	tableBase
	Flags            uint16 // see https://docs.microsoft.com/en-us/typography/opentype/spec/head
	UnitsPerEm       uint16 // values 16 … 16384 are valid
	IndexToLocFormat uint16 // 0 for short offsets, 1 for long
}

func newHeadTable(tag Tag, b binarySegm, offset, size uint32) *HeadTable {
	t := &HeadTable{tableBase: makeTableBase(tag, b, offset, size)}
	t.self = t
	return t
}

func (t *HeadTable) encode() ([]byte, error) {
	b := slices.Clone([]byte(t.data))
	put32(b[8:], 0) // checkSumAdjustment is patched after all tables are laid out
	put16(b[16:], t.Flags)
	put16(b[18:], t.UnitsPerEm)
	put16(b[50:], t.IndexToLocFormat)
	return b, nil
}

// HHeaTable contains information for horizontal layout. The same type is
// used for table 'vhea', which shares the layout of table 'hhea'.
type HHeaTable struct {
	tableBase
	AdvanceMax          uint16 // advanceWidthMax resp. advanceHeightMax
	NumberOfLongMetrics int    // numberOfHMetrics resp. numOfLongVerMetrics
}

func newHHeaTable(tag Tag, b binarySegm, offset, size uint32) *HHeaTable {
	t := &HHeaTable{tableBase: makeTableBase(tag, b, offset, size)}
	t.self = t
	return t
}

func (t *HHeaTable) encode() ([]byte, error) {
	if t.NumberOfLongMetrics > 0xffff {
		return nil, fmt.Errorf("%s: number of metrics too large: %d", t.name, t.NumberOfLongMetrics)
	}
	b := slices.Clone([]byte(t.data))
	put16(b[10:], t.AdvanceMax)
	put16(b[34:], uint16(t.NumberOfLongMetrics))
	return b, nil
}

// MaxPTable establishes the memory requirements for this font.
// The 'maxp' table contains a count for the number of glyphs in the font.
// Whenever this value changes, other tables which depend on it should also be updated.
type MaxPTable struct {
	tableBase
	NumGlyphs int
}

func newMaxPTable(tag Tag, b binarySegm, offset, size uint32) *MaxPTable {
	t := &MaxPTable{tableBase: makeTableBase(tag, b, offset, size)}
	t.self = t
	return t
}

func (t *MaxPTable) encode() ([]byte, error) {
	if t.NumGlyphs > MaxGlyphCount {
		return nil, ErrTooManyGlyphs
	}
	b := slices.Clone([]byte(t.data))
	put16(b[4:], uint16(t.NumGlyphs))
	return b, nil
}

// OS2Table gives access to the fields of table 'OS/2' which describe the
// character repertoire of a font.
type OS2Table struct {
	tableBase
	Version       uint16
	UnicodeRange  [4]uint32 // ulUnicodeRange1 … ulUnicodeRange4
	CodePageRange [2]uint32 // ulCodePageRange1 … 2, version 1 and above
}

func newOS2Table(tag Tag, b binarySegm, offset, size uint32) *OS2Table {
	t := &OS2Table{tableBase: makeTableBase(tag, b, offset, size)}
	t.self = t
	return t
}

// HasCodePageRange is true if the table is large enough to carry code page
// range bits.
func (t *OS2Table) HasCodePageRange() bool {
	return t.Version >= 1 && len(t.data) >= 86
}

func (t *OS2Table) encode() ([]byte, error) {
	b := slices.Clone([]byte(t.data))
	for i, r := range t.UnicodeRange {
		put32(b[42+4*i:], r)
	}
	if t.HasCodePageRange() {
		put32(b[78:], t.CodePageRange[0])
		put32(b[82:], t.CodePageRange[1])
	}
	return b, nil
}

// MetricsTable holds table 'hmtx' or 'vmtx', expanded to one long metric per
// glyph. When written, every glyph receives a long metric record.
type MetricsTable struct {
	tableBase
	Metrics []LongMetric
}

// LongMetric is a metric record for a single glyph: advance width and left
// side bearing for 'hmtx', advance height and top side bearing for 'vmtx'.
type LongMetric struct {
	Advance     uint16
	SideBearing int16
}

func newMetricsTable(tag Tag, b binarySegm, offset, size uint32) *MetricsTable {
	t := &MetricsTable{tableBase: makeTableBase(tag, b, offset, size)}
	t.self = t
	return t
}

// expand decodes numberOfLongMetrics long records, followed by side
// bearings for the remaining glyphs, which inherit the last advance.
func (t *MetricsTable) expand(numGlyphs, numberOfLongMetrics int) error {
	if numberOfLongMetrics < 1 || numberOfLongMetrics > numGlyphs {
		return fmt.Errorf("invalid number of long metrics %d (numGlyphs=%d)", numberOfLongMetrics, numGlyphs)
	}
	required := numberOfLongMetrics*4 + (numGlyphs-numberOfLongMetrics)*2
	if required > len(t.data) {
		return fmt.Errorf("%s table too small: need %d bytes, have %d", t.name, required, len(t.data))
	}
	t.Metrics = make([]LongMetric, numGlyphs)
	r := newReader(t.data, 0)
	for i := 0; i < numberOfLongMetrics; i++ {
		t.Metrics[i].Advance = r.u16()
		t.Metrics[i].SideBearing = int16(r.u16())
	}
	last := t.Metrics[numberOfLongMetrics-1].Advance
	for i := numberOfLongMetrics; i < numGlyphs; i++ {
		t.Metrics[i].Advance = last
		t.Metrics[i].SideBearing = int16(r.u16())
	}
	return r.err
}

// MaxAdvance returns the largest advance of all glyphs.
func (t *MetricsTable) MaxAdvance() uint16 {
	var m uint16
	for _, lm := range t.Metrics {
		m = max(m, lm.Advance)
	}
	return m
}

func (t *MetricsTable) encode() ([]byte, error) {
	w := &writer{buf: make([]byte, 0, 4*len(t.Metrics))}
	for _, lm := range t.Metrics {
		w.u16(lm.Advance)
		w.i16(lm.SideBearing)
	}
	return w.bytes(), nil
}

// GlyfTable holds the TrueType outlines, split into one byte slice per glyph.
// Outlines are not interpreted. An empty slice denotes a glyph without
// contours.
type GlyfTable struct {
	tableBase
	Glyphs [][]byte
}

func newGlyfTable(tag Tag, b binarySegm, offset, size uint32) *GlyfTable {
	t := &GlyfTable{tableBase: makeTableBase(tag, b, offset, size)}
	t.self = t
	return t
}

// split cuts the glyf data at the locations read from table 'loca'.
func (t *GlyfTable) split(loca []uint32) error {
	if len(loca) == 0 {
		return fmt.Errorf("empty loca table")
	}
	t.Glyphs = make([][]byte, len(loca)-1)
	for gid := range t.Glyphs {
		from, to := loca[gid], loca[gid+1]
		if from > to || to > uint32(len(t.data)) {
			return fmt.Errorf("glyph %d: location [%d:%d] out of bounds", gid, from, to)
		}
		t.Glyphs[gid] = t.data[from:to]
	}
	return nil
}

// layout concatenates the glyphs, each padded to a 4-byte boundary, and
// returns the glyph locations (numGlyphs+1 entries).
func (t *GlyfTable) layout() ([]byte, []uint32) {
	w := &writer{}
	loca := make([]uint32, 0, len(t.Glyphs)+1)
	for _, g := range t.Glyphs {
		loca = append(loca, uint32(w.len()))
		w.raw(g)
		w.pad()
	}
	loca = append(loca, uint32(w.len()))
	return w.bytes(), loca
}

func (t *GlyfTable) encode() ([]byte, error) {
	b, _ := t.layout()
	return b, nil
}

// LocaTable stores the offsets to the locations of the glyphs in the font,
// relative to the beginning of the glyph data table. It is derived from
// table 'glyf' when the font is written and always uses the long format.
type LocaTable struct {
	tableBase
	glyf *GlyfTable
}

func newLocaTable(tag Tag, b binarySegm, offset, size uint32) *LocaTable {
	t := &LocaTable{tableBase: makeTableBase(tag, b, offset, size)}
	t.self = t
	return t
}

// locations decodes the short or long loca format.
func (t *LocaTable) locations(format uint16, numGlyphs int) ([]uint32, error) {
	r := newReader(t.data, 0)
	loca := make([]uint32, numGlyphs+1)
	for i := range loca {
		if format == 0 {
			loca[i] = 2 * uint32(r.u16())
		} else {
			loca[i] = r.u32()
		}
	}
	if r.err != nil {
		return nil, fmt.Errorf("loca table too small for %d glyphs", numGlyphs)
	}
	return loca, nil
}

func (t *LocaTable) encode() ([]byte, error) {
	if t.glyf == nil {
		return t.data, nil
	}
	_, loca := t.glyf.layout()
	w := &writer{buf: make([]byte, 0, 4*len(loca))}
	for _, l := range loca {
		w.u32(l)
	}
	return w.bytes(), nil
}
