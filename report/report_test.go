package report

import (
	"errors"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
)

func TestEventString(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{Event{Outcome: Added, Subject: "U+3402"}, "added: U+3402"},
		{Event{Outcome: AlreadyPresent, Subject: "U+0041"}, "already in font: U+0041"},
		{Event{Outcome: Skipped, Subject: "aalt: x -> y", Reason: "no glyph"}, "skipped: aalt: x -> y: no glyph"},
		{Event{Outcome: Skipped, Subject: "U+0041"}, "skipped: U+0041"},
		{Event{Outcome: Notice, Subject: "GSUB table created"}, "GSUB table created"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.event.String())
	}
	assert.Equal(t, "Outcome(9)", Outcome(9).String())
}

func TestRecorder(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "addglyph")
	defer teardown()
	//
	rec := &Recorder{}
	sink := Tee(rec.Sink(), Trace(), Discard)
	sink.Added("U+3402")
	sink.AlreadyPresent("U+0041")
	sink.Skipped("U+0042", errors.New("not in font"))
	sink.Notice("%d glyphs added!", 1)
	assert.Equal(t, 1, rec.Count(Added))
	assert.Equal(t, 1, rec.Count(Skipped))
	assert.True(t, rec.Contains("skipped: U+0042: not in font"))
	assert.Equal(t, []string{
		"added: U+3402",
		"already in font: U+0041",
		"skipped: U+0042: not in font",
		"1 glyphs added!",
	}, rec.Lines())
}

func TestNilSinkDiscards(t *testing.T) {
	var sink Sink
	assert.NotPanics(t, func() {
		sink.Added("U+0041")
		sink.Notice("nothing")
	})
}
