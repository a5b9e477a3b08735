package ot

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat4Segments(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	tests := []struct {
		name     string
		mapping  map[rune]GlyphIndex
		segments int // including the final segment
		array    int // length of the glyph index array
	}{
		{"empty", map[rune]GlyphIndex{}, 1, 0},
		{"single code", map[rune]GlyphIndex{'A': 5}, 2, 0},
		{"constant delta run", map[rune]GlyphIndex{'A': 5, 'B': 6, 'C': 7, 'D': 8, 'E': 9}, 2, 0},
		{"short irregular run", map[rune]GlyphIndex{'A': 9, 'B': 3, 'C': 7}, 2, 3},
		{"run followed by irregular tail", map[rune]GlyphIndex{
			'a': 10, 'b': 11, 'c': 12, 'd': 13, 'e': 40, 'f': 2,
		}, 3, 2},
		{"codes above the BMP are ignored", map[rune]GlyphIndex{'A': 1, 0x20000: 2}, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := encodeFormat4(tt.mapping, 0)
			require.NoError(t, err)
			segCount := int(u16(b[6:])) / 2
			assert.Equal(t, tt.segments, segCount)
			assert.Equal(t, 16+8*segCount+2*tt.array, len(b))
			m, err := decodeFormat4(b)
			require.NoError(t, err)
			want := make(map[rune]GlyphIndex)
			for c, g := range tt.mapping {
				if c < 0xffff {
					want[c] = g
				}
			}
			if diff := cmp.Diff(want, m); diff != "" {
				t.Errorf("format 4 round trip (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormat4Overflow(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	m := make(map[rune]GlyphIndex)
	for c := rune(0x100); c < 0x100+2*10000; c += 2 {
		m[c] = GlyphIndex(c % 1000)
	}
	_, err := encodeFormat4(m, 0)
	assert.Error(t, err)
}

func TestFormat12Groups(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	m := map[rune]GlyphIndex{
		'A': 1, 'B': 2, 'C': 3, // one group
		'X':     9,
		0x20000: 10, 0x20001: 11, // one group
	}
	b := encodeFormat12(m, 0)
	assert.Equal(t, uint32(3), u32(b[12:]))
	decoded, err := decodeFormat12(b)
	require.NoError(t, err)
	if diff := cmp.Diff(m, decoded); diff != "" {
		t.Errorf("format 12 round trip (-want +got):\n%s", diff)
	}
}

func TestFormat14RoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	uvs := map[rune][]UVSEntry{
		0xFE00: {
			{Base: 'A', Glyph: None[GlyphIndex]()},
			{Base: 'B', Glyph: None[GlyphIndex]()},
			{Base: 'C', Glyph: Some(GlyphIndex(7))},
		},
		0xE0100: {
			{Base: 0x4E00, Glyph: Some(GlyphIndex(3))},
		},
	}
	decoded, err := decodeFormat14(encodeFormat14(uvs))
	require.NoError(t, err)
	if diff := cmp.Diff(uvs, decoded, cmp.AllowUnexported(Option[GlyphIndex]{})); diff != "" {
		t.Errorf("format 14 round trip (-want +got):\n%s", diff)
	}
}

func TestCMapEncodeSharesSubtables(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	cmap := newCMapTable(T("cmap"), nil, 0, 0)
	for _, ids := range [][2]uint16{{3, 1}, {0, 3}} {
		st := NewCMapSubtable(ids[0], ids[1], 4)
		st.Mapping['A'] = 1
		cmap.AddSubtable(st)
	}
	b, err := cmap.encode()
	require.NoError(t, err)
	// sorted by platform: 0/3 first, then 3/1, both pointing to the same data
	assert.Equal(t, uint16(0), u16(b[4:]))
	assert.Equal(t, uint16(3), u16(b[12:]))
	assert.Equal(t, u32(b[8:]), u32(b[16:]))

	parsed, err := parseCMap(T("cmap"), b, 0, uint32(len(b)), &errorCollector{})
	require.NoError(t, err)
	assert.Len(t, parsed.Self().AsCMap().Subtables, 2)
}
