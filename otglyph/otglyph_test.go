package otglyph

import (
	"errors"
	"testing"

	"github.com/npillmayer/addglyph/internal/fonttest"
	"github.com/npillmayer/addglyph/ot"
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

func TestGlyphNames(t *testing.T) {
	assert.Equal(t, "uni3402", CodepointName(0x3402))
	assert.Equal(t, "uni0041", CodepointName('A'))
	assert.Equal(t, "u20000", CodepointName(0x20000))
	assert.Equal(t, "u4E00uE0100", SequenceName(0x4E00, 0xE0100))
	assert.Equal(t, "u845BuFE00", SequenceName(0x845B, 0xFE00))
}

func TestAddBlankGlyph(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	f := fonttest.Simple()
	f.Vertical = true
	otf := loadTestFont(t, f)
	s, err := New(otf)
	require.NoError(t, err)

	gid, err := s.AddBlankGlyph("uni3402")
	require.NoError(t, err)
	assert.Equal(t, ot.GlyphIndex(4), gid)
	assert.Equal(t, 5, otf.NumGlyphs())
	assert.Equal(t, 1, s.Added())
	assert.Empty(t, otf.Glyf().Glyphs[gid])
	assert.Equal(t, ot.LongMetric{Advance: 1024}, otf.HMtx().Metrics[gid])
	assert.Equal(t, ot.LongMetric{Advance: 1024}, otf.VMtx().Metrics[gid])
	assert.Equal(t, "uni3402", otf.GlyphName(gid))

	// the font must survive a round trip with the new glyph
	data, err := otf.Encode()
	require.NoError(t, err)
	again, err := ot.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 5, again.NumGlyphs())
	g, ok := again.GlyphIndexByName("uni3402")
	assert.True(t, ok)
	assert.Equal(t, gid, g)
}

func TestAddBlankGlyphUniqueNames(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	otf := loadTestFont(t, fonttest.Simple())
	s, err := New(otf)
	require.NoError(t, err)
	for _, want := range []string{"A#1", "A#2"} {
		gid, err := s.AddBlankGlyph("A")
		require.NoError(t, err)
		assert.Equal(t, want, otf.GlyphName(gid))
	}
}

func TestAddBlankGlyphWithoutNames(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	f := fonttest.Simple()
	f.PostNames = false
	otf := loadTestFont(t, f)
	s, err := New(otf)
	require.NoError(t, err)
	gid, err := s.AddBlankGlyph("uni3402")
	require.NoError(t, err)
	assert.Equal(t, "glyph00004", otf.GlyphName(gid))
}

func TestGlyphLimit(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	otf := loadTestFont(t, fonttest.Simple())
	s, err := New(otf)
	require.NoError(t, err)
	otf.MaxP().NumGlyphs = ot.MaxGlyphCount
	_, err = s.AddBlankGlyph("uni3402")
	assert.True(t, errors.Is(err, ot.ErrTooManyGlyphs))
}

func TestRequiresGlyf(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph.ot")
	defer teardown()
	//
	_, err := New(&ot.Font{})
	assert.Equal(t, ErrNoGlyf, err)
}
