package ot

import (
	"fmt"
	"maps"
	"slices"
)

// Coverage tables and class definition tables are shared by all lookup
// types. Both come in two formats: a plain list and a list of glyph ranges.
// When writing, the smaller format is chosen.

// parseCoverage decodes a coverage table into the list of covered glyphs,
// in coverage index order.
func parseCoverage(b binarySegm) ([]GlyphIndex, error) {
	r := newReader(b, 0)
	format, count := r.u16(), int(r.u16())
	switch format {
	case 1:
		glyphs := r.glyphs(count)
		if r.err != nil {
			return nil, fmt.Errorf("coverage format 1: %w", r.err)
		}
		return glyphs, nil
	case 2:
		var glyphs []GlyphIndex
		for i := 0; i < count; i++ {
			start, end, inx := r.u16(), r.u16(), int(r.u16())
			if r.err != nil {
				return nil, fmt.Errorf("coverage format 2: %w", r.err)
			}
			if end < start || inx != len(glyphs) {
				return nil, fmt.Errorf("coverage format 2: invalid range record %d", i)
			}
			for g := int(start); g <= int(end); g++ {
				glyphs = append(glyphs, GlyphIndex(g))
			}
		}
		return glyphs, nil
	}
	return nil, fmt.Errorf("unknown coverage format %d", format)
}

// parseClassDef decodes a class definition table.
func parseClassDef(b binarySegm) (ClassDef, error) {
	r := newReader(b, 0)
	cd := make(ClassDef)
	switch format := r.u16(); format {
	case 1:
		start := int(r.u16())
		classes := r.u16s(int(r.u16()))
		if r.err != nil {
			return nil, fmt.Errorf("class definition format 1: %w", r.err)
		}
		for i, c := range classes {
			if c != 0 {
				cd[GlyphIndex(start+i)] = c
			}
		}
	case 2:
		count := int(r.u16())
		for i := 0; i < count; i++ {
			start, end, c := r.u16(), r.u16(), r.u16()
			if r.err != nil {
				return nil, fmt.Errorf("class definition format 2: %w", r.err)
			}
			for g := int(start); g <= int(end) && c != 0; g++ {
				cd[GlyphIndex(g)] = c
			}
		}
	default:
		return nil, fmt.Errorf("unknown class definition format %d", format)
	}
	return cd, nil
}

type glyphRange struct {
	start, end GlyphIndex
}

// glyphRanges splits a sorted list of glyphs into runs of consecutive glyphs.
func glyphRanges(glyphs []GlyphIndex) []glyphRange {
	var ranges []glyphRange
	for _, g := range glyphs {
		if n := len(ranges); n > 0 && ranges[n-1].end+1 == g {
			ranges[n-1].end = g
			continue
		}
		ranges = append(ranges, glyphRange{start: g, end: g})
	}
	return ranges
}

// coverageNode encodes a coverage table. glyphs have to be sorted and
// free of duplicates.
func (p *packer) coverageNode(glyphs []GlyphIndex) *packNode {
	n := p.node()
	ranges := glyphRanges(glyphs)
	if 2*len(glyphs) <= 6*len(ranges) {
		n.u16(1)
		n.u16(uint16(len(glyphs)))
		n.glyphs(glyphs)
	} else {
		n.u16(2)
		n.u16(uint16(len(ranges)))
		inx := 0
		for _, r := range ranges {
			n.u16(uint16(r.start))
			n.u16(uint16(r.end))
			n.u16(uint16(inx))
			inx += int(r.end-r.start) + 1
		}
	}
	return p.intern(n)
}

// classDefNode encodes a class definition table. Class 0 entries are
// implicit and omitted.
func (p *packer) classDefNode(cd ClassDef) *packNode {
	glyphs := slices.Sorted(maps.Keys(cd))
	glyphs = slices.DeleteFunc(glyphs, func(g GlyphIndex) bool { return cd[g] == 0 })
	type classRange struct {
		start, end GlyphIndex
		class      uint16
	}
	var ranges []classRange
	for _, g := range glyphs {
		if n := len(ranges); n > 0 && ranges[n-1].end+1 == g && ranges[n-1].class == cd[g] {
			ranges[n-1].end = g
			continue
		}
		ranges = append(ranges, classRange{start: g, end: g, class: cd[g]})
	}
	n := p.node()
	fmt1Size := 6
	if len(glyphs) > 0 {
		fmt1Size += 2 * int(glyphs[len(glyphs)-1]-glyphs[0]+1)
	}
	if fmt1Size <= 4+6*len(ranges) {
		n.u16(1)
		if len(glyphs) == 0 {
			n.u16(0)
			n.u16(0)
			return p.intern(n)
		}
		first, last := glyphs[0], glyphs[len(glyphs)-1]
		n.u16(uint16(first))
		n.u16(uint16(last - first + 1))
		for g := int(first); g <= int(last); g++ {
			n.u16(cd[GlyphIndex(g)])
		}
	} else {
		n.u16(2)
		n.u16(uint16(len(ranges)))
		for _, r := range ranges {
			n.u16(uint16(r.start))
			n.u16(uint16(r.end))
			n.u16(r.class)
		}
	}
	return p.intern(n)
}
