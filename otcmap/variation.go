package otcmap

import (
	"fmt"
	"slices"

	"github.com/npillmayer/addglyph/ot"
	"github.com/npillmayer/addglyph/report"
)

// Sequence is a Unicode variation sequence: a base character followed by a
// variation selector.
type Sequence struct {
	Base     rune
	Selector rune
}

func (s Sequence) String() string {
	return fmt.Sprintf("U+%04X U+%04X", s.Base, s.Selector)
}

// Compare orders sequences by base character, then by selector.
func (s Sequence) Compare(other Sequence) int {
	if s.Base != other.Base {
		return int(s.Base - other.Base)
	}
	return int(s.Selector - other.Selector)
}

// VariationMap maps variation sequences to glyphs. It sits on top of a
// CharMap, which resolves default sequences to the glyph of their base
// character.
//
// Sequences added by VariationMap always carry an explicit glyph. Default
// sequences without a glyph of their own ("default UVS") are not supported
// by some platforms, Windows 7 amongst them.
type VariationMap struct {
	cmap  *ot.CMapTable
	chars *CharMap
	uvs   *ot.CMapSubtable // nil until the first sequence is added
	index map[Sequence]ot.Option[ot.GlyphIndex]
	sink  report.Sink
}

// NewVariationMap prepares the variation sequences of a font for editing.
func NewVariationMap(chars *CharMap, sink report.Sink) *VariationMap {
	vm := &VariationMap{
		cmap:  chars.cmap,
		chars: chars,
		uvs:   uvsID.find(chars.cmap),
		index: make(map[Sequence]ot.Option[ot.GlyphIndex]),
		sink:  sink,
	}
	if vm.uvs != nil {
		for sel, entries := range vm.uvs.UVS {
			for _, e := range entries {
				vm.index[Sequence{Base: e.Base, Selector: sel}] = e.Glyph
			}
		}
	}
	tracer().Debugf("variation map: %d sequences", len(vm.index))
	return vm
}

// Has is true if the font contains a sequence, with or without a glyph of
// its own.
func (vm *VariationMap) Has(base, selector rune) bool {
	_, ok := vm.index[Sequence{base, selector}]
	return ok
}

// Lookup returns the glyph for a variation sequence. Default sequences
// resolve to the glyph of the base character.
func (vm *VariationMap) Lookup(base, selector rune) (ot.GlyphIndex, bool) {
	g, ok := vm.index[Sequence{base, selector}]
	if !ok {
		return 0, false
	}
	if gid, ok := g.Unwrap(); ok {
		return gid, true
	}
	return vm.chars.Lookup(base)
}

// Add maps a variation sequence to a glyph. The variation sequence
// subtable is created if necessary.
func (vm *VariationMap) Add(base, selector rune, gid ot.GlyphIndex) {
	if vm.uvs == nil {
		vm.uvs = uvsID.create(vm.cmap)
		vm.sink.Notice("cmap subtable (format=14) created")
	}
	seq := Sequence{base, selector}
	entry := ot.UVSEntry{Base: base, Glyph: ot.Some(gid)}
	entries := vm.uvs.UVS[selector]
	if i := slices.IndexFunc(entries, func(e ot.UVSEntry) bool { return e.Base == base }); i >= 0 {
		entries[i] = entry
	} else {
		vm.uvs.UVS[selector] = append(entries, entry)
	}
	vm.index[seq] = entry.Glyph
}

// Sequences returns every sequence of the font in ascending order.
func (vm *VariationMap) Sequences() []Sequence {
	seqs := make([]Sequence, 0, len(vm.index))
	for seq := range vm.index {
		seqs = append(seqs, seq)
	}
	slices.SortFunc(seqs, Sequence.Compare)
	return seqs
}

// RepairDefaults replaces every default sequence by a sequence mapped
// explicitly to the glyph of its base character. It is an error if a base
// character has no glyph.
func (vm *VariationMap) RepairDefaults() error {
	if vm.uvs == nil {
		return nil
	}
	repaired := 0
	for _, sel := range vm.uvs.Selectors() {
		entries := vm.uvs.UVS[sel]
		for i, e := range entries {
			if e.Glyph.IsSome() {
				continue
			}
			gid, ok := vm.chars.Lookup(e.Base)
			if !ok {
				return fmt.Errorf("base character (U+%04X) not in font", e.Base)
			}
			entries[i].Glyph = ot.Some(gid)
			vm.index[Sequence{e.Base, sel}] = entries[i].Glyph
			repaired++
		}
	}
	if repaired > 0 {
		tracer().Infof("%d default variation sequences mapped to their base glyph", repaired)
	}
	return nil
}

// CheckRequirements reports hints for variation sequences to work on
// Windows 7, which needs a glyph for U+0020 and at least one character
// outside the BMP.
func (vm *VariationMap) CheckRequirements() {
	if _, ok := vm.chars.Lookup(0x20); !ok {
		vm.sink.Notice("U+0020 should be added for VS to work on Windows 7")
	}
	cps := vm.chars.Codepoints()
	if len(cps) == 0 || cps[len(cps)-1] < 0x10000 {
		vm.sink.Notice("at least one non-BMP character should be added for VS to work on Windows 7")
	}
}
