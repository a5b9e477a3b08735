package ot

import (
	"cmp"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"slices"
)

// ttTableOrder gives the order of tables within the output font. Listed
// tables are written first, all others follow in order of their tags.
// Table 'glyf' always comes last, as some font editors (TTEdit) expect.
var ttTableOrder = []Tag{
	T("head"), T("hhea"), T("maxp"), T("post"), T("OS/2"), T("name"),
	T("gasp"), T("cvt "), T("fpgm"), T("prep"), T("cmap"), T("loca"),
	T("hmtx"), T("mort"), T("GSUB"), T("vhea"), T("vmtx"),
}

// tableRank sorts tables by ttTableOrder.
func tableRank(tag Tag) int {
	if tag == T("glyf") {
		return len(ttTableOrder) + 1
	}
	if i := slices.Index(ttTableOrder, tag); i >= 0 {
		return i
	}
	return len(ttTableOrder)
}

// sync makes the tables which depend on the number of glyphs consistent
// with table 'maxp'. Tables holding per-glyph data which have not been
// extended in step with maxp are reported as an error.
func (otf *Font) sync() error {
	numGlyphs := otf.NumGlyphs()
	if numGlyphs > MaxGlyphCount {
		return ErrTooManyGlyphs
	}
	check := func(tag string, n int) error {
		if n != numGlyphs {
			return fmt.Errorf("table %s holds %d glyphs, maxp says %d", tag, n, numGlyphs)
		}
		return nil
	}
	if err := check("hmtx", len(otf.HMtx().Metrics)); err != nil {
		return err
	}
	otf.HHea().NumberOfLongMetrics = numGlyphs
	otf.HHea().AdvanceMax = max(otf.HHea().AdvanceMax, otf.HMtx().MaxAdvance())
	if vmtx := otf.VMtx(); vmtx != nil {
		if err := check("vmtx", len(vmtx.Metrics)); err != nil {
			return err
		}
		otf.VHea().NumberOfLongMetrics = numGlyphs
		otf.VHea().AdvanceMax = max(otf.VHea().AdvanceMax, vmtx.MaxAdvance())
	}
	if glyf := otf.Glyf(); glyf != nil {
		if err := check("glyf", len(glyf.Glyphs)); err != nil {
			return err
		}
		otf.Head().IndexToLocFormat = 1
	}
	if post := otf.Post(); post.HasNames() {
		if err := check("post", post.NameCount()); err != nil {
			return err
		}
	}
	return nil
}

type tableData struct {
	tag  Tag
	data []byte
}

// Encode serializes the font, reflecting all modifications applied to its
// decoded tables. The checksums of all tables and the checksum adjustment of
// table 'head' are recomputed.
func (otf *Font) Encode() ([]byte, error) {
	if err := otf.sync(); err != nil {
		return nil, err
	}
	tables := make([]tableData, 0, len(otf.tables))
	for _, tag := range otf.TableTags() {
		b, err := otf.tables[tag].encode()
		if err != nil {
			return nil, fmt.Errorf("encoding table %s: %w", tag, err)
		}
		tables = append(tables, tableData{tag: tag, data: b})
	}
	slices.SortStableFunc(tables, func(a, b tableData) int {
		if c := cmp.Compare(tableRank(a.tag), tableRank(b.tag)); c != 0 {
			return c
		}
		return cmp.Compare(a.tag, b.tag)
	})

	n := len(tables)
	w := &writer{}
	w.u32(otf.Header.FontType)
	w.u16(uint16(n))
	sel := bits.Len(uint(n)) - 1
	searchRange := uint16(1 << (sel + 4))
	w.u16(searchRange)
	w.u16(uint16(sel))
	w.u16(uint16(16*n) - searchRange)

	type record struct {
		tag              Tag
		checksum, offset uint32
		length           uint32
	}
	records := make([]record, n)
	offset := uint32(12 + 16*n)
	var headOffset uint32
	headPos := -1
	for i, t := range tables {
		if t.tag == T("head") {
			headOffset, headPos = offset, i
		}
		records[i] = record{tag: t.tag, checksum: checksum(t.data), offset: offset, length: uint32(len(t.data))}
		offset += uint32(len(t.data)+3) &^ 3
	}
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, func(a, b record) int { return cmp.Compare(a.tag, b.tag) })
	var total uint32
	for _, rec := range sorted {
		w.tag(rec.tag)
		w.u32(rec.checksum)
		w.u32(rec.offset)
		w.u32(rec.length)
		total += rec.checksum
	}
	total += checksum(w.bytes())
	for _, t := range tables {
		w.raw(t.data)
		w.pad()
	}
	out := w.bytes()
	if headPos >= 0 && records[headPos].length >= 12 {
		put32(out[headOffset+8:], 0xB1B0AFBA-total)
	}
	return out, nil
}

// checksum computes the table checksum: the sum of all big-endian uint32
// words, where a trailing partial word is padded with zeros.
func checksum(data []byte) uint32 {
	var sum uint32
	for len(data) >= 4 {
		sum += u32(data)
		data = data[4:]
	}
	if len(data) > 0 {
		var last [4]byte
		copy(last[:], data)
		sum += u32(last[:])
	}
	return sum
}

// Save encodes the font and writes it to path. The file is written to a
// temporary file in the same directory first, which then replaces path, so
// an existing file at path is never left half-written.
func (otf *Font) Save(path string) error {
	data, err := otf.Encode()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	tracer().Infof("writing font with %d tables to %s", len(otf.tables), path)
	return os.Rename(tmp.Name(), path)
}
