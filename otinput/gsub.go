package otinput

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/npillmayer/addglyph/ot"
)

// SpecKind tells how a glyph is specified in a GSUB file.
type SpecKind int

const (
	ByIndex    SpecKind = iota // glyph index, e.g. \123
	ByChar                     // character
	BySequence                 // variation sequence
)

// GlyphSpec specifies a glyph of a GSUB rule.
type GlyphSpec struct {
	Kind     SpecKind
	Glyph    ot.GlyphIndex // ByIndex
	Char     rune          // ByChar, BySequence
	Selector rune          // BySequence
}

func (s GlyphSpec) String() string {
	switch s.Kind {
	case ByIndex:
		return fmt.Sprintf("\\%d", s.Glyph)
	case BySequence:
		return fmt.Sprintf("U+%04X U+%04X", s.Char, s.Selector)
	}
	return fmt.Sprintf("U+%04X", s.Char)
}

// Rule requests an alternate for an input glyph, for a feature.
type Rule struct {
	Tag       ot.Tag
	Input     GlyphSpec
	Alternate GlyphSpec
}

// ReadGSUB returns the rules listed in GSUB files. Rules are grouped by
// feature, in order of first appearance of the feature, and keep their
// order within a feature.
func ReadGSUB(files ...string) ([]Rule, error) {
	var tags []ot.Tag
	byTag := make(map[ot.Tag][]Rule)
	for _, path := range files {
		err := forEachLine(path, func(line string) error {
			rules, err := parseGSUBLine(line)
			for _, r := range rules {
				if _, ok := byTag[r.Tag]; !ok {
					tags = append(tags, r.Tag)
				}
				byTag[r.Tag] = append(byTag[r.Tag], r)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	var rules []Rule
	for _, tag := range tags {
		rules = append(rules, byTag[tag]...)
	}
	tracer().Debugf("%d rules for %d features requested by %d GSUB files", len(rules), len(tags), len(files))
	return rules, nil
}

func parseGSUBLine(line string) ([]Rule, error) {
	cols := strings.Fields(line)
	if len(cols) == 0 {
		return nil, nil
	}
	if len(cols) != 3 {
		return nil, syntaxError("invalid number of columns: %d", len(cols))
	}
	for i, col := range cols {
		cols[i] = DecodeEntities(col)
	}
	if !validFeatureTag(cols[0]) {
		return nil, syntaxError("invalid feature tag: %s", cols[0])
	}
	tag := ot.T(cols[0])
	input, err := ParseGlyphSpecs(cols[1])
	if err != nil {
		return nil, err
	}
	if len(input) != 1 {
		return nil, syntaxError("invalid input glyph: %s", cols[1])
	}
	alternates, err := ParseGlyphSpecs(cols[2])
	if err != nil {
		return nil, err
	}
	rules := make([]Rule, len(alternates))
	for i, alt := range alternates {
		rules[i] = Rule{Tag: tag, Input: input[0], Alternate: alt}
	}
	return rules, nil
}

// validFeatureTag is true for exactly four characters between U+0020 and
// U+007F.
func validFeatureTag(s string) bool {
	n := 0
	for _, r := range s {
		if r < 0x20 || r > 0x7f {
			return false
		}
		n++
	}
	return n == 4
}

// IsVariationSelector is true for the Mongolian free variation selectors
// and the variation selectors of the BMP and of plane 14.
func IsVariationSelector(r rune) bool {
	switch {
	case r >= 0x180b && r <= 0x180d, r == 0x180f:
		return true
	case r >= 0xfe00 && r <= 0xfe0f:
		return true
	case r >= 0xe0100 && r <= 0xe01ef:
		return true
	}
	return false
}

var glyphIndex = regexp.MustCompile(`^\\([0-9]+)`)

// ParseGlyphSpecs splits a string into glyph specifications: glyph indices
// in the form \123, characters, and characters followed by a variation
// selector. Numeric character references are decoded.
func ParseGlyphSpecs(s string) ([]GlyphSpec, error) {
	var specs []GlyphSpec
	var buf []rune
	flush := func() {
		for i := 0; i < len(buf); i++ {
			if i+1 < len(buf) && IsVariationSelector(buf[i+1]) {
				specs = append(specs, GlyphSpec{Kind: BySequence, Char: buf[i], Selector: buf[i+1]})
				i++
			} else {
				specs = append(specs, GlyphSpec{Kind: ByChar, Char: buf[i]})
			}
		}
		buf = buf[:0]
	}
	for i := 0; i < len(s); {
		if m := glyphIndex.FindStringSubmatch(s[i:]); m != nil {
			gid, err := strconv.ParseUint(m[1], 10, 16)
			if err != nil {
				return nil, syntaxError("invalid glyph index: %s", m[0])
			}
			flush()
			specs = append(specs, GlyphSpec{Kind: ByIndex, Glyph: ot.GlyphIndex(gid)})
			i += len(m[0])
			continue
		}
		if loc := entity.FindStringIndex(s[i:]); loc != nil && loc[0] == 0 {
			if r, ok := decodeEntity(s[i : i+loc[1]]); ok {
				buf = append(buf, r)
				i += loc[1]
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		buf = append(buf, r)
		i += size
	}
	flush()
	return specs, nil
}
