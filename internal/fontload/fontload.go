/*
Package fontload reads fonts with golang.org/x/image/font/sfnt.

It serves as an independent second reader for fonts written by package ot:
a font which sfnt cannot parse, or which maps characters to different
glyphs than expected, has been damaged on its way through addglyph.
*/
package fontload

import (
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// ScalableFont is a parsed scalable font with original bytes and SFNT view.
type ScalableFont struct {
	Fontname string
	Filepath string
	Binary   []byte
	SFNT     *sfnt.Font
	buf      sfnt.Buffer
}

// LoadOpenTypeFont loads an OpenType font (TTF or OTF) from a file.
func LoadOpenTypeFont(fontfile string) (*ScalableFont, error) {
	bytez, err := os.ReadFile(fontfile)
	if err != nil {
		return nil, err
	}
	f, err := ParseOpenTypeFont(bytez)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fontfile, err)
	}
	f.Filepath = fontfile
	return f, nil
}

// ParseOpenTypeFont loads an OpenType font (TTF or OTF) from memory.
// Fonts without a full name are accepted; Fontname stays empty.
func ParseOpenTypeFont(fbytes []byte) (f *ScalableFont, err error) {
	f = &ScalableFont{Binary: fbytes}
	f.SFNT, err = sfnt.Parse(f.Binary)
	if err != nil {
		return nil, err
	}
	if name, err := f.SFNT.Name(&f.buf, sfnt.NameIDFull); err == nil {
		f.Fontname = name
	}
	return f, nil
}

// NumGlyphs returns the number of glyphs of the font.
func (f *ScalableFont) NumGlyphs() int {
	return f.SFNT.NumGlyphs()
}

// GlyphIndex returns the glyph a character is mapped to. Unmapped
// characters yield glyph 0.
func (f *ScalableFont) GlyphIndex(r rune) (int, error) {
	gid, err := f.SFNT.GlyphIndex(&f.buf, r)
	return int(gid), err
}

// GlyphName returns the name of a glyph as stored in table 'post', or an
// empty string if the font does not store glyph names.
func (f *ScalableFont) GlyphName(gid int) string {
	name, err := f.SFNT.GlyphName(&f.buf, sfnt.GlyphIndex(gid))
	if err != nil {
		return ""
	}
	return name
}

// Advance returns the advance width of a glyph in font units.
func (f *ScalableFont) Advance(gid int) (int, error) {
	ppem := f.SFNT.UnitsPerEm()
	adv, err := f.SFNT.GlyphAdvance(&f.buf, sfnt.GlyphIndex(gid), fixed.I(int(ppem)), font.HintingNone)
	if err != nil {
		return 0, err
	}
	return adv.Round(), nil
}
