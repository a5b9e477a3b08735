package otcmap

import (
	"testing"

	"github.com/npillmayer/addglyph/internal/fonttest"
	"github.com/npillmayer/addglyph/ot"
	"github.com/npillmayer/addglyph/report"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestFont(t *testing.T, f *fonttest.Font) *ot.Font {
	t.Helper()
	otf, err := ot.Parse(f.Bytes())
	require.NoError(t, err)
	return otf
}

func TestCharMapCreatesFullSubtable(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.cmap")
	defer teardown()
	//
	otf := loadTestFont(t, fonttest.Simple())
	rec := &report.Recorder{}
	cm, err := NewCharMap(otf, rec.Sink())
	require.NoError(t, err)
	assert.True(t, rec.Contains("cmap subtable (format=12) created"))
	full := otf.CMap().Subtable(3, 10, 12)
	require.NotNil(t, full)
	assert.Equal(t, map[rune]ot.GlyphIndex{' ': 1, 'A': 2, 'B': 3}, full.Mapping)
	gid, ok := cm.Lookup('A')
	assert.True(t, ok)
	assert.Equal(t, ot.GlyphIndex(2), gid)
	assert.Equal(t, 3, cm.Len())

	// a second editor finds the subtable
	rec = &report.Recorder{}
	_, err = NewCharMap(otf, rec.Sink())
	require.NoError(t, err)
	assert.Empty(t, rec.Events)
}

func TestCharMapWithoutUnicodeSubtable(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.cmap")
	defer teardown()
	//
	f := fonttest.Simple()
	f.BMP = nil
	otf := loadTestFont(t, f)
	_, err := NewCharMap(otf, nil)
	assert.ErrorIs(t, err, ErrNoCharMap)
}

func TestCharMapAdd(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.cmap")
	defer teardown()
	//
	f := fonttest.Simple()
	f.BMP['C'] = 3 // mapped by the BMP subtable only
	f.Full = map[rune]uint16{' ': 1, 'A': 2, 'B': 3}
	otf := loadTestFont(t, f)
	cm, err := NewCharMap(otf, nil)
	require.NoError(t, err)
	_, ok := cm.Lookup('C')
	assert.False(t, ok, "full subtable is the source of truth")

	cm.Add('C', 2)
	cm.Add(0x3402, 3)
	cm.Add(0x20000, 1)
	bmp := otf.CMap().Subtable(3, 1, 4).Mapping
	full := otf.CMap().Subtable(3, 10, 12).Mapping
	assert.Equal(t, ot.GlyphIndex(3), bmp['C'], "BMP subtable keeps its mapping")
	assert.Equal(t, ot.GlyphIndex(2), full['C'])
	assert.Equal(t, full[0x3402], bmp[0x3402])
	assert.NotContains(t, bmp, rune(0x20000))
	assert.Equal(t, ot.GlyphIndex(1), full[0x20000])
	assert.Equal(t, []rune{' ', 'A', 'B', 'C', 0x3402, 0x20000}, cm.Codepoints())
}

func TestCharMapWithoutBMPSubtable(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.cmap")
	defer teardown()
	//
	f := fonttest.Simple()
	f.BMP = nil
	f.Full = map[rune]uint16{'A': 2}
	otf := loadTestFont(t, f)
	cm, err := NewCharMap(otf, nil)
	require.NoError(t, err)
	assert.False(t, cm.HasBMPSubtable())
	cm.Add('B', 3)
	gid, ok := cm.Lookup('B')
	assert.True(t, ok)
	assert.Equal(t, ot.GlyphIndex(3), gid)
	assert.Nil(t, otf.CMap().Subtable(3, 1, 4))
}

func TestVariationMap(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.cmap")
	defer teardown()
	//
	otf := loadTestFont(t, fonttest.Simple())
	rec := &report.Recorder{}
	cm, err := NewCharMap(otf, rec.Sink())
	require.NoError(t, err)
	vm := NewVariationMap(cm, rec.Sink())
	assert.False(t, vm.Has('A', 0xFE00))
	assert.Nil(t, otf.CMap().Subtable(0, 5, 14), "created lazily")

	vm.Add('A', 0xFE00, 3)
	assert.True(t, rec.Contains("cmap subtable (format=14) created"))
	assert.True(t, vm.Has('A', 0xFE00))
	gid, ok := vm.Lookup('A', 0xFE00)
	assert.True(t, ok)
	assert.Equal(t, ot.GlyphIndex(3), gid)

	vm.Add('B', 0xFE00, 2)
	vm.Add('A', 0xFE00, 1) // replaces the previous entry
	uvs := otf.CMap().Subtable(0, 5, 14).UVS
	require.Len(t, uvs[0xFE00], 2)
	assert.Equal(t, ot.Some(ot.GlyphIndex(1)), uvs[0xFE00][0].Glyph)
	assert.Equal(t, []Sequence{{'A', 0xFE00}, {'B', 0xFE00}}, vm.Sequences())
	assert.Equal(t, 2, rec.Count(report.Notice), "format 12 and format 14 notices, once each")
}

func TestVariationMapRepairDefaults(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.cmap")
	defer teardown()
	//
	f := fonttest.Simple()
	f.Sequences = []fonttest.UVS{
		{Base: 'A', Selector: 0xFE00, Default: true},
		{Base: 'B', Selector: 0xFE00, Glyph: 1},
	}
	otf := loadTestFont(t, f)
	cm, err := NewCharMap(otf, nil)
	require.NoError(t, err)
	vm := NewVariationMap(cm, nil)
	assert.True(t, vm.Has('A', 0xFE00))
	gid, ok := vm.Lookup('A', 0xFE00)
	assert.True(t, ok, "default sequence resolves to base glyph")
	assert.Equal(t, ot.GlyphIndex(2), gid)

	require.NoError(t, vm.RepairDefaults())
	for _, e := range otf.CMap().Subtable(0, 5, 14).UVS[0xFE00] {
		assert.True(t, e.Glyph.IsSome(), "U+%04X", e.Base)
	}
	data, err := otf.Encode()
	require.NoError(t, err)
	again, err := ot.Parse(data)
	require.NoError(t, err)
	for _, e := range again.CMap().Subtable(0, 5, 14).UVS[0xFE00] {
		want := map[rune]ot.GlyphIndex{'A': 2, 'B': 1}[e.Base]
		assert.Equal(t, ot.Some(want), e.Glyph)
	}
}

func TestVariationMapRepairMissingBase(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.cmap")
	defer teardown()
	//
	f := fonttest.Simple()
	f.Sequences = []fonttest.UVS{{Base: 'Z', Selector: 0xFE00, Default: true}}
	otf := loadTestFont(t, f)
	cm, err := NewCharMap(otf, nil)
	require.NoError(t, err)
	err = NewVariationMap(cm, nil).RepairDefaults()
	assert.EqualError(t, err, "base character (U+005A) not in font")
}

func TestCheckRequirements(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.cmap")
	defer teardown()
	//
	const (
		space  = "U+0020 should be added for VS to work on Windows 7"
		nonBMP = "at least one non-BMP character should be added for VS to work on Windows 7"
	)
	tests := []struct {
		name    string
		mapping map[rune]uint16
		notices []string
	}{
		{"space and non-BMP", map[rune]uint16{' ': 1, 0x20000: 2}, nil},
		{"no space", map[rune]uint16{'A': 2, 0x20000: 2}, []string{space}},
		{"BMP only", map[rune]uint16{' ': 1, 'A': 2}, []string{nonBMP}},
		{"neither", map[rune]uint16{'A': 2}, []string{space, nonBMP}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fonttest.Simple()
			f.BMP = nil
			f.Full = tt.mapping
			otf := loadTestFont(t, f)
			cm, err := NewCharMap(otf, nil)
			require.NoError(t, err)
			rec := &report.Recorder{}
			NewVariationMap(cm, rec.Sink()).CheckRequirements()
			assert.Equal(t, tt.notices, nilIfEmpty(rec.Lines()))
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestUnicodeRanges(t *testing.T) {
	bits := UnicodeRanges([]rune{'A', 0x3402, 0x4E00, 0x20000, 0xE0100})
	for _, bit := range []int{0, 59, NonPlane0Bit, 91} {
		assert.True(t, bits.Has(bit), "bit %d", bit)
	}
	assert.False(t, bits.Has(1))
	assert.Equal(t, uint32(1), bits[0])
}

func TestCodePageRanges(t *testing.T) {
	var ascii []rune
	for r := rune(0x20); r < 0x7F; r++ {
		ascii = append(ascii, r)
	}
	tests := []struct {
		name  string
		chars []rune
		bits  []int
	}{
		{"fallback is Latin 1", []rune{'A'}, []int{0}},
		{"Latin 1", append([]rune{'Þ'}, ascii...), []int{0}},
		{"Japanese", []rune{'エ', '央'}, []int{17, 20}},
		{"Cyrillic without ASCII", []rune{'Б'}, []int{2}},
		{"Macintosh", append([]rune{'‰', '∑'}, ascii...), []int{29}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var want CodePageBits
			for _, b := range tt.bits {
				want.Set(b)
			}
			assert.Equal(t, want, CodePageRanges(tt.chars))
		})
	}
}

func TestUpdateOS2KeepsBits(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.cmap")
	defer teardown()
	//
	otf := loadTestFont(t, fonttest.Simple())
	os2 := otf.OS2()
	require.NotNil(t, os2)
	os2.UnicodeRange[3] = 0x80000000
	assert.True(t, UpdateOS2(os2, []rune{'A', 0x4E00}))
	bits := UnicodeRangeBits(os2.UnicodeRange)
	assert.True(t, bits.Has(0))
	assert.True(t, bits.Has(59))
	assert.True(t, bits.Has(127), "existing bits are kept")
	assert.False(t, UpdateOS2(os2, []rune{'A'}), "nothing new")

	SetUnicodeRangeBit(os2, NonPlane0Bit)
	assert.Equal(t, uint32(1<<25), os2.UnicodeRange[1]&(1<<25))
}
