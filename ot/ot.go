package ot

import (
	"fmt"
	"slices"
)

// Font represents the internal structure of an OpenType font.
// It is used to inspect and extend the tables of a font and to write the
// font back to disk.
//
// Tables which are needed for adding glyphs, character mappings and glyph
// substitutions are decoded into mutable structures. All other tables are
// kept as opaque byte slices.
type Font struct {
	Header        FontHeader
	tables        map[Tag]Table
	parseErrors   []FontError   // Errors accumulated during parsing
	parseWarnings []FontWarning // Warnings accumulated during parsing
}

// FontHeader is the offset table at the start of a font file.
//
// OpenType fonts that contain TrueType outlines should use the value of 0x00010000
// for the FontType. OpenType fonts containing CFF data (version 1 or 2) should
// use 0x4F54544F ('OTTO', when re-interpreted as a Tag).
// The Apple specification for TrueType fonts allows for 'true' and 'typ1',
// but these version tags should not be used for OpenType fonts.
type FontHeader struct {
	FontType   uint32
	TableCount uint16
}

// Table returns the font table for a given tag. If a table for a tag cannot
// be found in the font, nil is returned.
//
// For example to receive the `cmap` and the `GSUB` table, clients may call
//
//	cmap := otf.Table(ot.T("cmap")).Self().AsCMap()
//	gsub := otf.Table(ot.T("GSUB")).Self().AsGSub()
//
// Table tag names are case-sensitive, following the names in the OpenType specification.
func (otf *Font) Table(tag Tag) Table {
	if t, ok := otf.tables[tag]; ok {
		return t
	}
	return nil
}

// SetTable adds a table to the font or replaces an existing table with
// the same tag.
func (otf *Font) SetTable(t Table) {
	if t == nil {
		return
	}
	if otf.tables == nil {
		otf.tables = make(map[Tag]Table)
	}
	tag := t.Self().NameTag()
	if _, exists := otf.tables[tag]; !exists {
		otf.Header.TableCount++
	}
	otf.tables[tag] = t
}

// tableSelf is a nil-safe variant of Table(tag).Self().
func (otf *Font) tableSelf(tag Tag) TableSelf {
	if t := otf.Table(tag); t != nil {
		return t.Self()
	}
	return TableSelf{}
}

// TableTags returns a sorted list of tags, one for each table contained in the font.
func (otf *Font) TableTags() []Tag {
	var tags = make([]Tag, 0, len(otf.tables))
	for tag := range otf.tables {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// IsTrueType returns true if the font has TrueType outlines.
func (otf *Font) IsTrueType() bool {
	return otf.Table(T("glyf")) != nil
}

// Head returns the 'head' table.
func (otf *Font) Head() *HeadTable {
	return otf.tableSelf(T("head")).AsHead()
}

// HHea returns the 'hhea' table.
func (otf *Font) HHea() *HHeaTable {
	return otf.tableSelf(T("hhea")).AsHHea()
}

// VHea returns the 'vhea' table, if present.
func (otf *Font) VHea() *HHeaTable {
	return otf.tableSelf(T("vhea")).AsHHea()
}

// MaxP returns the 'maxp' table.
func (otf *Font) MaxP() *MaxPTable {
	return otf.tableSelf(T("maxp")).AsMaxP()
}

// HMtx returns the horizontal metrics.
func (otf *Font) HMtx() *MetricsTable {
	return otf.tableSelf(T("hmtx")).AsMetrics()
}

// VMtx returns the vertical metrics, if present.
func (otf *Font) VMtx() *MetricsTable {
	return otf.tableSelf(T("vmtx")).AsMetrics()
}

// Glyf returns the glyph outlines, if the font has TrueType outlines.
func (otf *Font) Glyf() *GlyfTable {
	return otf.tableSelf(T("glyf")).AsGlyf()
}

// Post returns the 'post' table, if present.
func (otf *Font) Post() *PostTable {
	return otf.tableSelf(T("post")).AsPost()
}

// OS2 returns the 'OS/2' table, if present.
func (otf *Font) OS2() *OS2Table {
	return otf.tableSelf(T("OS/2")).AsOS2()
}

// CMap returns the 'cmap' table.
func (otf *Font) CMap() *CMapTable {
	return otf.tableSelf(T("cmap")).AsCMap()
}

// GSub returns the 'GSUB' table, if present.
func (otf *Font) GSub() *GSubTable {
	return otf.tableSelf(T("GSUB")).AsGSub()
}

// NumGlyphs returns the number of glyphs in the font, as stated by table 'maxp'.
func (otf *Font) NumGlyphs() int {
	if maxp := otf.MaxP(); maxp != nil {
		return maxp.NumGlyphs
	}
	return 0
}

// GlyphName returns the name of a glyph. Fonts without a glyph name table
// get synthesized names in the style of "glyph00042".
func (otf *Font) GlyphName(gid GlyphIndex) string {
	if post := otf.Post(); post != nil && post.HasNames() {
		if name, ok := post.GlyphName(gid); ok {
			return name
		}
	}
	if gid == 0 {
		return ".notdef"
	}
	return fmt.Sprintf("glyph%05d", gid)
}

// GlyphIndexByName returns the glyph for a glyph name, if the font stores
// glyph names.
func (otf *Font) GlyphIndexByName(name string) (GlyphIndex, bool) {
	if post := otf.Post(); post != nil && post.HasNames() {
		return post.GlyphIndex(name)
	}
	return 0, false
}

// Errors returns all errors encountered during font parsing.
// These errors represent issues that were found but did not prevent parsing from completing.
func (otf *Font) Errors() []FontError {
	if otf.parseErrors == nil {
		return []FontError{}
	}
	return otf.parseErrors
}

// Warnings returns all warnings encountered during font parsing.
// Warnings indicate potential issues that are generally safe to ignore.
func (otf *Font) Warnings() []FontWarning {
	if otf.parseWarnings == nil {
		return []FontWarning{}
	}
	return otf.parseWarnings
}

// CriticalErrors returns all errors with critical severity.
func (otf *Font) CriticalErrors() []FontError {
	critical := make([]FontError, 0)
	for _, err := range otf.parseErrors {
		if err.Severity == SeverityCritical {
			critical = append(critical, err)
		}
	}
	return critical
}

// GlyphIndex is a glyph index in a font.
type GlyphIndex uint16

// MaxGlyphCount is the maximum number of glyphs a font may contain.
const MaxGlyphCount = 65535

// --- Tag -------------------------------------------------------------------

// Tag is defined by the spec as:
// Array of four uint8s (length = 32 bits) used to identify a table, design-variation axis,
// script, language system, feature, or baseline
type Tag uint32

// MakeTag creates a Tag from 4 bytes, e.g.,
// If b is shorter or longer, it will be silently extended or cut as appropriate
//
//	MakeTag([]byte("cmap"))
func MakeTag(b []byte) Tag {
	if b == nil {
		b = []byte{0, 0, 0, 0}
	} else if len(b) > 4 {
		b = b[:4]
	} else if len(b) < 4 {
		b = append([]byte{0, 0, 0, 0}[:4-len(b)], b...)
	}
	return Tag(u32(b))
}

// T returns a Tag from a (4-letter) string.
// If t is shorter or longer, it will be silently extended or cut as appropriate
func T(t string) Tag {
	t = (t + "    ")[:4]
	return Tag(u32([]byte(t)))
}

func (t Tag) String() string {
	bytes := []byte{
		byte(t >> 24 & 0xff),
		byte(t >> 16 & 0xff),
		byte(t >> 8 & 0xff),
		byte(t & 0xff),
	}
	return string(bytes)
}

// --- Table -----------------------------------------------------------------

// Table represents one of the various OpenType font tables.
//
// Tables interpreted by this package are head, hhea, vhea, maxp, hmtx, vmtx,
// loca, glyf, post, OS/2, cmap and GSUB. Every other table is represented by
// a generic table which is written back unchanged.
type Table interface {
	Extent() (uint32, uint32) // offset and byte size within the font's binary data as read
	Binary() []byte           // the bytes of this table as read; should be treated as read-only
	Self() TableSelf          // reference to itself
	encode() ([]byte, error)  // binary representation reflecting all edits
}

func newTable(tag Tag, b binarySegm, offset, size uint32) *genericTable {
	t := &genericTable{tableBase{
		data:   b,
		name:   tag,
		offset: offset,
		length: size,
	},
	}
	t.self = t
	return t
}

type genericTable struct {
	tableBase
}

func (t *genericTable) encode() ([]byte, error) {
	return t.data, nil
}

// tableBase is a common parent for all kinds of OpenType tables.
type tableBase struct {
	data   binarySegm // a table is a slice of font data
	name   Tag        // 4-byte name as an integer
	offset uint32     // from offset
	length uint32     // to offset + length
	self   any
}

func makeTableBase(tag Tag, b binarySegm, offset, size uint32) tableBase {
	return tableBase{
		data:   b,
		name:   tag,
		offset: offset,
		length: size,
	}
}

// Extent returns offset and byte size of this table within the OpenType font.
// Tables created by clients have an extent of (0, 0).
func (tb *tableBase) Extent() (uint32, uint32) {
	return tb.offset, tb.length
}

// Binary returns the bytes of this table as read from the font file.
// Should be treated as read-only by clients, as it is a view into the original data.
func (tb *tableBase) Binary() []byte {
	return tb.data
}

// Self returns a reference to the table, suited for type conversion.
func (tb *tableBase) Self() TableSelf {
	return TableSelf{tableBase: tb}
}

// TableSelf is a reference to a table. Its primary use is for converting
// a generic table to a concrete table flavour, and for reproducing the
// name tag of a table.
//
// Converting a nil table is legal and yields a nil concrete table.
type TableSelf struct {
	tableBase *tableBase
}

// NameTag returns the 4-letter name of a table.
func (tself TableSelf) NameTag() Tag {
	if tself.tableBase == nil {
		return 0
	}
	return tself.tableBase.name
}

func safeSelf(tself TableSelf) any {
	if tself.tableBase == nil || tself.tableBase.self == nil {
		return TableSelf{}
	}
	return tself.tableBase.self
}

// AsCMap returns this table as a cmap table, or nil.
func (tself TableSelf) AsCMap() *CMapTable {
	if k, ok := safeSelf(tself).(*CMapTable); ok {
		return k
	}
	return nil
}

// AsGSub returns this table as a GSUB table, or nil.
func (tself TableSelf) AsGSub() *GSubTable {
	if g, ok := safeSelf(tself).(*GSubTable); ok {
		return g
	}
	return nil
}

// AsHead returns this table as a head table, or nil.
func (tself TableSelf) AsHead() *HeadTable {
	if k, ok := safeSelf(tself).(*HeadTable); ok {
		return k
	}
	return nil
}

// AsHHea returns this table as a hhea or vhea table, or nil.
func (tself TableSelf) AsHHea() *HHeaTable {
	if k, ok := safeSelf(tself).(*HHeaTable); ok {
		return k
	}
	return nil
}

// AsMaxP returns this table as a maxp table, or nil.
func (tself TableSelf) AsMaxP() *MaxPTable {
	if k, ok := safeSelf(tself).(*MaxPTable); ok {
		return k
	}
	return nil
}

// AsMetrics returns this table as a hmtx or vmtx table, or nil.
func (tself TableSelf) AsMetrics() *MetricsTable {
	if k, ok := safeSelf(tself).(*MetricsTable); ok {
		return k
	}
	return nil
}

// AsLoca returns this table as a loca table, or nil.
func (tself TableSelf) AsLoca() *LocaTable {
	if k, ok := safeSelf(tself).(*LocaTable); ok {
		return k
	}
	return nil
}

// AsGlyf returns this table as a glyf table, or nil.
func (tself TableSelf) AsGlyf() *GlyfTable {
	if k, ok := safeSelf(tself).(*GlyfTable); ok {
		return k
	}
	return nil
}

// AsPost returns this table as a post table, or nil.
func (tself TableSelf) AsPost() *PostTable {
	if k, ok := safeSelf(tself).(*PostTable); ok {
		return k
	}
	return nil
}

// AsOS2 returns this table as an OS/2 table, or nil.
func (tself TableSelf) AsOS2() *OS2Table {
	if k, ok := safeSelf(tself).(*OS2Table); ok {
		return k
	}
	return nil
}
