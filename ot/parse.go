package ot

import (
	"fmt"
	"math"
	"os"
)

// Code comment often will cite passage from the
// OpenType specification version 1.8.4;
// see https://docs.microsoft.com/en-us/typography/opentype/spec/.

// ---------------------------------------------------------------------------

// Checked arithmetic operations to prevent integer overflow

// checkedMulInt checks for overflow in multiplication of two non-negative integers
func checkedMulInt(a, b int) (int, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a < 0 || b < 0 || a > math.MaxInt/b {
		return 0, fmt.Errorf("integer overflow: %d * %d", a, b)
	}
	return a * b, nil
}

// checkedAddUint32 checks for overflow in addition of two uint32 values
func checkedAddUint32(a, b uint32) (uint32, error) {
	if a > math.MaxUint32-b {
		return 0, fmt.Errorf("integer overflow: %d + %d", a, b)
	}
	return a + b, nil
}

// ---------------------------------------------------------------------------

// Load reads and parses a font file.
func Load(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	otf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return otf, nil
}

// Parse parses an OpenType font from a byte slice.
// The font keeps references into font; callers must not modify it while the
// font is in use.
func Parse(font []byte) (*Font, error) {
	// https://www.microsoft.com/typography/otspec/otff.htm: Offset Table is 12 bytes.
	src := binarySegm(font)
	r := newReader(src, 0)
	h := FontHeader{FontType: r.u32(), TableCount: r.u16()}
	if r.err != nil {
		return nil, errFontFormat("font header")
	}
	tracer().Debugf("header = %v, tag = %x|%s", h, h.FontType, Tag(h.FontType).String())

	// Create error collector for accumulating errors during parsing
	ec := &errorCollector{}

	if h.FontType == 0x74746366 { // ttcf
		ec.addError(T(""), "Header", "font collections are not supported", SeverityCritical, 0)
		return nil, errFontFormat("font collections are not supported")
	}
	if !(h.FontType == 0x4f54544f || // OTTO
		h.FontType == 0x00010000 || // TrueType
		h.FontType == 0x74727565) { // true
		ec.addError(T(""), "Header", fmt.Sprintf("font type not supported: %x", h.FontType), SeverityCritical, 0)
		return nil, errFontFormat(fmt.Sprintf("font type not supported: %x", h.FontType))
	}
	otf := &Font{Header: FontHeader{FontType: h.FontType}, tables: make(map[Tag]Table)}
	// "The Offset Table is followed immediately by the Table Record entries …
	// sorted in ascending order by tag", 16 bytes each.
	tableRecordsSize, err := checkedMulInt(16, int(h.TableCount))
	if err != nil {
		ec.addError(T(""), "TableRecords", fmt.Sprintf("table count too large: %v", err), SeverityCritical, 12)
		return nil, errFontFormat(fmt.Sprintf("table count too large: %v", err))
	}
	buf, err := src.view(12, tableRecordsSize)
	if err != nil {
		ec.addError(T(""), "TableRecords", "table record entries", SeverityCritical, 12)
		return nil, errFontFormat("table record entries")
	}
	for b, prevTag := buf, Tag(0); len(b) > 0; b = b[16:] {
		tag := MakeTag(b)
		if tag <= prevTag && prevTag != 0 {
			ec.addError(T(""), "TableRecords", "table order", SeverityCritical, 12)
			return nil, errFontFormat("table order")
		}
		prevTag = tag
		off, size := u32(b[8:12]), u32(b[12:16])
		if off&3 != 0 { // ignore checksums, but "all tables must begin on four byte boundries".
			ec.addError(tag, "Offset", "invalid table offset", SeverityCritical, off)
			return nil, errFontFormat("invalid table offset")
		}
		tableEnd, err := checkedAddUint32(off, size)
		if err != nil {
			ec.addError(tag, "Size", fmt.Sprintf("size calculation overflow: %v", err), SeverityCritical, off)
			return nil, errFontFormat(fmt.Sprintf("table %s: size calculation overflow: %v", tag, err))
		}
		if tableEnd > uint32(len(src)) {
			ec.addError(tag, "Bounds", fmt.Sprintf("bounds [%d:%d] exceed font size %d", off, tableEnd, len(src)), SeverityCritical, off)
			return nil, errFontFormat(fmt.Sprintf("table %s: bounds [%d:%d] exceed font size %d",
				tag, off, tableEnd, len(src)))
		}
		t, err := parseTable(tag, src[off:tableEnd], off, size, ec)
		if err != nil {
			return nil, err
		}
		otf.SetTable(t)
	}
	if err := linkTables(otf, ec); err != nil {
		return nil, err
	}
	// Transfer accumulated errors and warnings to the Font
	otf.parseErrors = ec.errors
	otf.parseWarnings = ec.warnings
	return otf, nil
}

// RequiredTables are the tables without which a font cannot be extended.
var RequiredTables = []string{
	"cmap", "head", "hhea", "hmtx", "maxp",
}

func parseTable(t Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	switch t {
	case T("cmap"):
		return parseCMap(t, b, offset, size, ec)
	case T("head"):
		return parseHead(t, b, offset, size, ec)
	case T("hhea"), T("vhea"):
		return parseHHea(t, b, offset, size, ec)
	case T("maxp"):
		return parseMaxP(t, b, offset, size, ec)
	case T("hmtx"), T("vmtx"):
		return newMetricsTable(t, b, offset, size), nil
	case T("loca"):
		return newLocaTable(t, b, offset, size), nil
	case T("glyf"):
		return newGlyfTable(t, b, offset, size), nil
	case T("post"):
		return parsePost(t, b, offset, size, ec)
	case T("OS/2"):
		return parseOS2(t, b, offset, size, ec)
	case T("GSUB"):
		gsub, err := parseGSub(t, b, offset, size, ec)
		if err != nil {
			// The table is kept as it is; clients will not be able to edit it.
			tracer().Errorf("error parsing GSUB table: %v", err)
			ec.addError(t, "Decode", err.Error(), SeverityMajor, offset)
			return newTable(t, b, offset, size), nil
		}
		return gsub, nil
	}
	tracer().Debugf("font contains table (%s), will not be interpreted", t)
	return newTable(t, b, offset, size), nil
}

func parseHead(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 54 {
		ec.addError(tag, "Size", fmt.Sprintf("head table too small: %d bytes (need 54)", size), SeverityCritical, offset)
		return nil, errFontFormat("size of head table")
	}
	t := newHeadTable(tag, b, offset, size)
	t.Flags, _ = b.u16(16)      // flags
	t.UnitsPerEm, _ = b.u16(18) // units per em
	// IndexToLocFormat is needed to interpret the loca table:
	// 0 for short offsets, 1 for long
	t.IndexToLocFormat, _ = b.u16(50)
	return t, nil
}

func parseHHea(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	tracer().Debugf("%s table has size %d", tag, size)
	if size < 36 {
		ec.addError(tag, "Size", fmt.Sprintf("%s table too small: %d bytes (need 36)", tag, size), SeverityCritical, offset)
		return nil, errFontFormat(tag.String() + " table incomplete")
	}
	t := newHHeaTable(tag, b, offset, size)
	t.AdvanceMax, _ = b.u16(10)
	n, _ := b.u16(34)
	t.NumberOfLongMetrics = int(n)
	return t, nil
}

func parseMaxP(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 6 {
		ec.addError(tag, "Size", fmt.Sprintf("maxp table too small: %d bytes", size), SeverityCritical, offset)
		return nil, errFontFormat("maxp table incomplete")
	}
	t := newMaxPTable(tag, b, offset, size)
	n, _ := b.u16(4)
	t.NumGlyphs = int(n)
	return t, nil
}

func parsePost(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 32 {
		ec.addError(tag, "Size", fmt.Sprintf("post table too small: %d bytes (need 32)", size), SeverityCritical, offset)
		return nil, errFontFormat("post table incomplete")
	}
	t := newPostTable(tag, b, offset, size)
	t.Version, _ = b.u32(0)
	return t, nil
}

func parseOS2(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 58 {
		ec.addWarning(tag, "OS/2 table too small, will not be interpreted", offset)
		return newTable(tag, b, offset, size), nil
	}
	t := newOS2Table(tag, b, offset, size)
	r := newReader(b, 0)
	t.Version = r.u16()
	r.pos = 42
	for i := range t.UnicodeRange {
		t.UnicodeRange[i] = r.u32()
	}
	if t.HasCodePageRange() {
		r.pos = 78
		t.CodePageRange[0], t.CodePageRange[1] = r.u32(), r.u32()
	}
	return t, r.err
}

// linkTables checks the presence of required tables and decodes the tables
// which depend on values from other tables: metrics need the number of
// glyphs and of long metrics, glyphs need their locations.
func linkTables(otf *Font, ec *errorCollector) error {
	for _, tag := range RequiredTables {
		if otf.Table(T(tag)) == nil {
			ec.addError(T(tag), "Missing", "missing required table", SeverityCritical, 0)
			return errFontFormat("missing required table " + tag)
		}
	}
	numGlyphs := otf.NumGlyphs()
	if numGlyphs == 0 {
		ec.addError(T("maxp"), "NumGlyphs", "font has no glyphs", SeverityCritical, 0)
		return errFontFormat("font has no glyphs")
	}
	if err := otf.HMtx().expand(numGlyphs, otf.HHea().NumberOfLongMetrics); err != nil {
		ec.addError(T("hmtx"), "Metrics", err.Error(), SeverityCritical, 0)
		return errFontFormat(err.Error())
	}
	if vmtx := otf.VMtx(); vmtx != nil {
		if otf.VHea() == nil {
			ec.addError(T("vmtx"), "Metrics", "vmtx table without vhea table", SeverityCritical, 0)
			return errFontFormat("vmtx table without vhea table")
		}
		if err := vmtx.expand(numGlyphs, otf.VHea().NumberOfLongMetrics); err != nil {
			ec.addError(T("vmtx"), "Metrics", err.Error(), SeverityCritical, 0)
			return errFontFormat(err.Error())
		}
	}
	loca, glyf := otf.tableSelf(T("loca")).AsLoca(), otf.Glyf()
	if (loca == nil) != (glyf == nil) {
		ec.addError(T("loca"), "Missing", "loca and glyf tables must come in pairs", SeverityCritical, 0)
		return errFontFormat("loca and glyf tables must come in pairs")
	}
	if loca != nil {
		locations, err := loca.locations(otf.Head().IndexToLocFormat, numGlyphs)
		if err == nil {
			err = glyf.split(locations)
		}
		if err != nil {
			ec.addError(T("glyf"), "Glyphs", err.Error(), SeverityCritical, 0)
			return errFontFormat(err.Error())
		}
		loca.glyf = glyf
	}
	if post := otf.Post(); post.HasNames() {
		if err := post.decodeNames(); err != nil {
			// without names the table is still usable as version 3.0
			ec.addError(T("post"), "Names", err.Error(), SeverityMajor, 0)
			post.Version = postVersion3
		} else if post.NameCount() != numGlyphs {
			ec.addWarning(T("post"), fmt.Sprintf("%d glyph names for %d glyphs", post.NameCount(), numGlyphs), 0)
			post.resize(numGlyphs)
		}
	}
	return nil
}
