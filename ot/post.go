package ot

import (
	"fmt"
	"slices"
)

// PostTable holds table 'post'. For version 2.0 the glyph names are decoded
// and may be extended; all other versions carry no names and are written back
// unchanged.
type PostTable struct {
	tableBase
	Version   uint32
	names     []string              // glyph names, one per glyph (version 2.0 only)
	nameIndex map[string]GlyphIndex // reverse lookup, first glyph wins
}

func newPostTable(tag Tag, b binarySegm, offset, size uint32) *PostTable {
	t := &PostTable{tableBase: makeTableBase(tag, b, offset, size)}
	t.self = t
	return t
}

const (
	postVersion2 = 0x00020000
	postVersion3 = 0x00030000
)

// HasNames is true for post tables of version 2.0.
func (t *PostTable) HasNames() bool {
	return t != nil && t.Version == postVersion2
}

// GlyphName returns the name of glyph gid.
func (t *PostTable) GlyphName(gid GlyphIndex) (string, bool) {
	if !t.HasNames() || int(gid) >= len(t.names) {
		return "", false
	}
	return t.names[gid], true
}

// GlyphIndex returns the glyph with a given name.
func (t *PostTable) GlyphIndex(name string) (GlyphIndex, bool) {
	if !t.HasNames() {
		return 0, false
	}
	gid, ok := t.nameIndex[name]
	return gid, ok
}

// AddName appends a name for the glyph following the last named glyph.
// It is a no-op for tables without glyph names.
func (t *PostTable) AddName(name string) {
	if !t.HasNames() {
		return
	}
	gid := GlyphIndex(len(t.names))
	t.names = append(t.names, name)
	if _, exists := t.nameIndex[name]; !exists {
		t.nameIndex[name] = gid
	}
}

// resize pads the list of glyph names with generated names or truncates it,
// so that there is exactly one name per glyph.
func (t *PostTable) resize(numGlyphs int) {
	for len(t.names) < numGlyphs {
		name := fmt.Sprintf("glyph%05d", len(t.names))
		if _, exists := t.nameIndex[name]; !exists {
			t.nameIndex[name] = GlyphIndex(len(t.names))
		}
		t.names = append(t.names, name)
	}
	if len(t.names) > numGlyphs {
		t.names = t.names[:numGlyphs]
		for name, gid := range t.nameIndex {
			if int(gid) >= numGlyphs {
				delete(t.nameIndex, name)
			}
		}
	}
}

// NameCount returns the number of glyph names stored.
func (t *PostTable) NameCount() int {
	return len(t.names)
}

// decodeNames reads the glyph name index and the Pascal strings of a
// version 2.0 table.
func (t *PostTable) decodeNames() error {
	r := newReader(t.data, 32)
	n := int(r.u16())
	index := r.u16s(n)
	if r.err != nil {
		return fmt.Errorf("post: glyph name index truncated")
	}
	var custom []string
	for r.pos < len(t.data) {
		l := r.u8()
		s := r.take(int(l))
		if r.err != nil {
			return fmt.Errorf("post: glyph name data truncated")
		}
		custom = append(custom, string(s))
	}
	t.names = make([]string, n)
	t.nameIndex = make(map[string]GlyphIndex, n)
	for gid, inx := range index {
		switch {
		case int(inx) < len(macintoshGlyphNames):
			t.names[gid] = macintoshGlyphNames[inx]
		case int(inx)-len(macintoshGlyphNames) < len(custom):
			t.names[gid] = custom[int(inx)-len(macintoshGlyphNames)]
		default:
			return fmt.Errorf("post: glyph %d has invalid name index %d", gid, inx)
		}
		if _, exists := t.nameIndex[t.names[gid]]; !exists {
			t.nameIndex[t.names[gid]] = GlyphIndex(gid)
		}
	}
	return nil
}

func (t *PostTable) encode() ([]byte, error) {
	if !t.HasNames() {
		if v, _ := t.data.u32(0); v == t.Version {
			return t.data, nil
		}
		// downgraded table: header only
		out := slices.Clone(t.data[:32])
		put32(out, t.Version)
		return out, nil
	}
	if len(t.names) > MaxGlyphCount {
		return nil, ErrTooManyGlyphs
	}
	standard := make(map[string]uint16, len(macintoshGlyphNames))
	for i, name := range macintoshGlyphNames {
		standard[name] = uint16(i)
	}
	w := &writer{}
	w.raw(t.data[:32])
	w.u16(uint16(len(t.names)))
	pool := &writer{}
	customIndex := make(map[string]uint16)
	for _, name := range t.names {
		if inx, ok := standard[name]; ok {
			w.u16(inx)
			continue
		}
		inx, ok := customIndex[name]
		if !ok {
			if len(name) > 255 {
				return nil, fmt.Errorf("post: glyph name too long: %q", name)
			}
			inx = uint16(len(macintoshGlyphNames) + len(customIndex))
			customIndex[name] = inx
			pool.u8(uint8(len(name)))
			pool.raw([]byte(name))
		}
		w.u16(inx)
	}
	w.raw(pool.bytes())
	return w.bytes(), nil
}

// Names returns a copy of all glyph names.
func (t *PostTable) Names() []string {
	return slices.Clone(t.names)
}

// macintoshGlyphNames is the standard order of Macintosh glyph names,
// referenced by index from version 2.0 post tables.
var macintoshGlyphNames = []string{
	".notdef", ".null", "nonmarkingreturn", "space", "exclam", "quotedbl",
	"numbersign", "dollar", "percent", "ampersand", "quotesingle", "parenleft",
	"parenright", "asterisk", "plus", "comma", "hyphen", "period", "slash", "zero",
	"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "colon",
	"semicolon", "less", "equal", "greater", "question", "at", "A", "B", "C", "D",
	"E", "F", "G", "H", "I", "J", "K", "L", "M", "N", "O", "P", "Q", "R", "S", "T", "U", "V",
	"W", "X", "Y", "Z", "bracketleft", "backslash", "bracketright", "asciicircum",
	"underscore", "grave", "a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l",
	"m", "n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z", "braceleft",
	"bar", "braceright", "asciitilde", "Adieresis", "Aring", "Ccedilla", "Eacute",
	"Ntilde", "Odieresis", "Udieresis", "aacute", "agrave", "acircumflex",
	"adieresis", "atilde", "aring", "ccedilla", "eacute", "egrave", "ecircumflex",
	"edieresis", "iacute", "igrave", "icircumflex", "idieresis", "ntilde",
	"oacute", "ograve", "ocircumflex", "odieresis", "otilde", "uacute", "ugrave",
	"ucircumflex", "udieresis", "dagger", "degree", "cent", "sterling", "section",
	"bullet", "paragraph", "germandbls", "registered", "copyright", "trademark",
	"acute", "dieresis", "notequal", "AE", "Oslash", "infinity", "plusminus",
	"lessequal", "greaterequal", "yen", "mu", "partialdiff", "summation",
	"product", "pi", "integral", "ordfeminine", "ordmasculine", "Omega", "ae",
	"oslash", "questiondown", "exclamdown", "logicalnot", "radical", "florin",
	"approxequal", "Delta", "guillemotleft", "guillemotright", "ellipsis",
	"nonbreakingspace", "Agrave", "Atilde", "Otilde", "OE", "oe", "endash",
	"emdash", "quotedblleft", "quotedblright", "quoteleft", "quoteright",
	"divide", "lozenge", "ydieresis", "Ydieresis", "fraction", "currency",
	"guilsinglleft", "guilsinglright", "fi", "fl", "daggerdbl", "periodcentered",
	"quotesinglbase", "quotedblbase", "perthousand", "Acircumflex",
	"Ecircumflex", "Aacute", "Edieresis", "Egrave", "Iacute", "Icircumflex",
	"Idieresis", "Igrave", "Oacute", "Ocircumflex", "apple", "Ograve", "Uacute",
	"Ucircumflex", "Ugrave", "dotlessi", "circumflex", "tilde", "macron", "breve",
	"dotaccent", "ring", "cedilla", "hungarumlaut", "ogonek", "caron", "Lslash",
	"lslash", "Scaron", "scaron", "Zcaron", "zcaron", "brokenbar", "Eth", "eth",
	"Yacute", "yacute", "Thorn", "thorn", "minus", "multiply", "onesuperior",
	"twosuperior", "threesuperior", "onehalf", "onequarter", "threequarters",
	"franc", "Gbreve", "gbreve", "Idotaccent", "Scedilla", "scedilla", "Cacute",
	"cacute", "Ccaron", "ccaron", "dcroat",
}
