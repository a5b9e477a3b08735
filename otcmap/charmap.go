/*
Package otcmap edits the Unicode character map of a font.

A font's character map is the logical union of up to three cmap subtables:

▪︎ a BMP-only subtable (platform 3, encoding 1, format 4), optional

▪︎ a full-repertoire subtable (platform 3, encoding 10, format 12), which is
created from the BMP subtable if missing

▪︎ a variation sequence subtable (platform 0, encoding 5, format 14), created
on demand

The full-repertoire subtable is the source of truth for the question whether
a character is already mapped. New mappings for BMP characters are mirrored
to the BMP subtable, but never overwrite a mapping there.

Package otcmap also calculates the Unicode range and code page bits of table
'OS/2' for a character repertoire.
*/
package otcmap

import (
	"errors"
	"maps"
	"slices"

	"github.com/npillmayer/addglyph/ot"
	"github.com/npillmayer/addglyph/report"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'addglyph.cmap'
func tracer() tracing.Trace {
	return tracing.Select("addglyph.cmap")
}

// ErrNoCharMap is returned for fonts without a usable Unicode subtable.
var ErrNoCharMap = errors.New("cmap subtable (format=4) not found")

// Platform, encoding and format of the subtables edited by this package.
var (
	bmpID  = subtableID{3, 1, 4}
	fullID = subtableID{3, 10, 12}
	uvsID  = subtableID{0, 5, 14}
)

type subtableID struct {
	platform, encoding, format uint16
}

func (id subtableID) find(cmap *ot.CMapTable) *ot.CMapSubtable {
	return cmap.Subtable(id.platform, id.encoding, id.format)
}

func (id subtableID) create(cmap *ot.CMapTable) *ot.CMapSubtable {
	st := ot.NewCMapSubtable(id.platform, id.encoding, id.format)
	cmap.AddSubtable(st)
	return st
}

// CharMap maps characters to glyphs.
type CharMap struct {
	cmap *ot.CMapTable
	bmp  *ot.CMapSubtable // may be nil
	full *ot.CMapSubtable
}

// NewCharMap prepares the character map of a font for editing. If the font
// has no full-repertoire subtable, one is created with the mappings of the
// BMP subtable and sink receives a notice. Fonts with neither subtable cannot
// be edited.
func NewCharMap(otf *ot.Font, sink report.Sink) (*CharMap, error) {
	cmap := otf.CMap()
	if cmap == nil {
		return nil, ErrNoCharMap
	}
	cm := &CharMap{
		cmap: cmap,
		bmp:  bmpID.find(cmap),
		full: fullID.find(cmap),
	}
	if cm.full == nil {
		if cm.bmp == nil {
			return nil, ErrNoCharMap
		}
		cm.full = fullID.create(cmap)
		maps.Copy(cm.full.Mapping, cm.bmp.Mapping)
		sink.Notice("cmap subtable (format=12) created")
	}
	tracer().Debugf("character map: %d characters, BMP subtable=%v", len(cm.full.Mapping), cm.bmp != nil)
	return cm, nil
}

// Lookup returns the glyph for a character.
func (cm *CharMap) Lookup(r rune) (ot.GlyphIndex, bool) {
	gid, ok := cm.full.Mapping[r]
	return gid, ok
}

// Add maps a character to a glyph. The full-repertoire subtable is always
// updated. BMP characters are added to the BMP subtable as well, unless it
// already maps the character.
func (cm *CharMap) Add(r rune, gid ot.GlyphIndex) {
	cm.full.Mapping[r] = gid
	if r < 0x10000 && cm.bmp != nil {
		if _, exists := cm.bmp.Mapping[r]; !exists {
			cm.bmp.Mapping[r] = gid
		}
	}
}

// Codepoints returns every mapped character in ascending order.
func (cm *CharMap) Codepoints() []rune {
	set := make(map[rune]struct{}, len(cm.full.Mapping))
	for r := range cm.full.Mapping {
		set[r] = struct{}{}
	}
	if cm.bmp != nil {
		for r := range cm.bmp.Mapping {
			set[r] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// HasBMPSubtable is true if the font has a format 4 subtable.
func (cm *CharMap) HasBMPSubtable() bool {
	return cm.bmp != nil
}

// Len returns the number of characters of the full-repertoire subtable.
func (cm *CharMap) Len() int {
	return len(cm.full.Mapping)
}
