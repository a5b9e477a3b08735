/*
Package otglyph appends placeholder glyphs to a TrueType font.

New glyphs have no outline: the glyph data is empty, which TrueType
interprets as a glyph without contours and with a zero bounding box. Each
new glyph gets an advance of 1024 font units horizontally and, if the font
has vertical metrics, vertically. Glyph names are stored if the font keeps
names in table 'post'.

Glyph synthesis requires a 'glyf' table. CFF-flavoured fonts are rejected.
*/
package otglyph

import (
	"errors"
	"fmt"

	"github.com/npillmayer/addglyph/ot"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'addglyph.ot'
func tracer() tracing.Trace {
	return tracing.Select("addglyph.ot")
}

// DefaultAdvance is the advance width and height of a new glyph.
const DefaultAdvance = 1024

// ErrNoGlyf is returned for fonts without TrueType outlines.
var ErrNoGlyf = errors.New("font has no 'glyf' table, cannot add glyphs")

// Synthesizer adds blank glyphs to a font.
type Synthesizer struct {
	otf   *ot.Font
	added int
}

// New creates a synthesizer for a font. The font has to have tables 'glyf',
// 'loca' and 'hmtx'.
func New(otf *ot.Font) (*Synthesizer, error) {
	if otf == nil {
		return nil, errors.New("font is nil")
	}
	if otf.Glyf() == nil || otf.HMtx() == nil || otf.MaxP() == nil {
		return nil, ErrNoGlyf
	}
	return &Synthesizer{otf: otf}, nil
}

// Added returns the number of glyphs added by this synthesizer.
func (s *Synthesizer) Added() int {
	return s.added
}

// AddBlankGlyph appends an empty glyph to the font and returns its glyph
// index. If the font stores glyph names, the glyph is named name, or name
// with a suffix "#1", "#2", … if name is already taken.
func (s *Synthesizer) AddBlankGlyph(name string) (ot.GlyphIndex, error) {
	maxp := s.otf.MaxP()
	if maxp.NumGlyphs >= ot.MaxGlyphCount {
		return 0, fmt.Errorf("cannot add glyph %q: %w", name, ot.ErrTooManyGlyphs)
	}
	gid := ot.GlyphIndex(maxp.NumGlyphs)
	glyf := s.otf.Glyf()
	glyf.Glyphs = append(glyf.Glyphs, []byte{})
	blank := ot.LongMetric{Advance: DefaultAdvance}
	hmtx := s.otf.HMtx()
	hmtx.Metrics = append(hmtx.Metrics, blank)
	if vmtx := s.otf.VMtx(); vmtx != nil {
		vmtx.Metrics = append(vmtx.Metrics, blank)
	}
	if post := s.otf.Post(); post.HasNames() {
		name = s.uniqueName(post, name)
		post.AddName(name)
	}
	maxp.NumGlyphs++
	s.added++
	tracer().Debugf("added glyph %d: %s", gid, name)
	return gid, nil
}

// uniqueName appends "#n" to a glyph name until it is unused.
func (s *Synthesizer) uniqueName(post *ot.PostTable, name string) string {
	taken := func(n string) bool {
		_, ok := post.GlyphIndex(n)
		return ok
	}
	if !taken(name) {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s#%d", name, i)
		if !taken(candidate) {
			return candidate
		}
	}
}

// CodepointName returns the glyph name for a character: "uniXXXX" for
// characters of the Basic Multilingual Plane, "uXXXXX" otherwise.
func CodepointName(r rune) string {
	if r < 0x10000 {
		return fmt.Sprintf("uni%04X", r)
	}
	return fmt.Sprintf("u%04X", r)
}

// SequenceName returns the glyph name for a non-default variation sequence,
// e.g. "u4E00uE0100".
func SequenceName(base, selector rune) string {
	return fmt.Sprintf("u%04Xu%04X", base, selector)
}
