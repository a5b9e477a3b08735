/*
Package report carries per-item outcomes of a font editing run to the caller.

Every component of addglyph receives a Sink and reports what it did with each
requested item: a character, a variation sequence or a substitution rule was
added, was already present, or had to be skipped. Structural changes, like a
newly created cmap subtable, are reported as notices.

The default sink writes to tracing key 'addglyph'. Clients which need the
events in structured form, e.g. for a summary or for tests, use a Recorder.
*/
package report

import (
	"fmt"
	"strings"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'addglyph'
func tracer() tracing.Trace {
	return tracing.Select("addglyph")
}

// Outcome classifies an event.
type Outcome int

const (
	Notice         Outcome = iota // structural change or hint, no item involved
	Added                         // item has been added to the font
	AlreadyPresent                // item was already present, font unchanged
	Skipped                       // item could not be processed
)

func (o Outcome) String() string {
	switch o {
	case Notice:
		return "notice"
	case Added:
		return "added"
	case AlreadyPresent:
		return "already in font"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Event is a single reported outcome. Subject names the item, e.g.
// "U+4E00 U+E0100" or "aalt: A -> B". For notices, Subject holds the
// message. Reason is set for skipped items.
type Event struct {
	Outcome Outcome
	Subject string
	Reason  string
}

func (e Event) String() string {
	switch e.Outcome {
	case Notice:
		return e.Subject
	case Skipped:
		if e.Reason == "" {
			return "skipped: " + e.Subject
		}
		return "skipped: " + e.Subject + ": " + e.Reason
	}
	return e.Outcome.String() + ": " + e.Subject
}

// Sink receives events. A nil Sink discards every event.
type Sink func(Event)

// Emit sends an event to the sink.
func (s Sink) Emit(e Event) {
	if s != nil {
		s(e)
	}
}

// Notice reports a structural change or a hint.
func (s Sink) Notice(format string, args ...any) {
	s.Emit(Event{Outcome: Notice, Subject: fmt.Sprintf(format, args...)})
}

// Added reports an item which has been added.
func (s Sink) Added(subject string) {
	s.Emit(Event{Outcome: Added, Subject: subject})
}

// AlreadyPresent reports an item which did not need to be added.
func (s Sink) AlreadyPresent(subject string) {
	s.Emit(Event{Outcome: AlreadyPresent, Subject: subject})
}

// Skipped reports an item which could not be processed.
func (s Sink) Skipped(subject string, err error) {
	e := Event{Outcome: Skipped, Subject: subject}
	if err != nil {
		e.Reason = err.Error()
	}
	s.Emit(e)
}

// Trace is the default sink. It writes skipped items as errors and
// everything else as info messages.
func Trace() Sink {
	return func(e Event) {
		if e.Outcome == Skipped {
			tracer().Errorf("%s", e)
			return
		}
		tracer().Infof("%s", e)
	}
}

// Discard drops every event.
func Discard(Event) {}

// Tee forwards every event to each of the sinks, in order.
func Tee(sinks ...Sink) Sink {
	return func(e Event) {
		for _, s := range sinks {
			s.Emit(e)
		}
	}
}

// Recorder collects events in memory.
type Recorder struct {
	Events []Event
}

// Sink returns a sink appending to the recorder.
func (r *Recorder) Sink() Sink {
	return func(e Event) {
		r.Events = append(r.Events, e)
	}
}

// Count returns the number of recorded events with a given outcome.
func (r *Recorder) Count(o Outcome) int {
	n := 0
	for _, e := range r.Events {
		if e.Outcome == o {
			n++
		}
	}
	return n
}

// Lines returns the recorded events as text, one line per event.
func (r *Recorder) Lines() []string {
	lines := make([]string, len(r.Events))
	for i, e := range r.Events {
		lines[i] = e.String()
	}
	return lines
}

// Contains is true if an event with the given text has been recorded.
func (r *Recorder) Contains(line string) bool {
	for _, e := range r.Events {
		if e.String() == line {
			return true
		}
	}
	return false
}

func (r *Recorder) String() string {
	return strings.Join(r.Lines(), "\n")
}
