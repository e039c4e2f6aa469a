package chat

import (
	"testing"

	"advisor-cli/internal/config"
	"advisor-cli/internal/stream"
)

func newTestView() (*StreamingMessageView, *fakeSurface, *fakeRenderer) {
	surface := newFakeSurface()
	renderer := &fakeRenderer{}
	typing := &typingIndicator{surface: surface}
	typing.Show()
	v := newStreamingMessageView(surface, renderer, config.DetectHeuristic, typing, nil)
	return v, surface, renderer
}

func TestViewAccumulatesDeltas(t *testing.T) {
	v, surface, _ := newTestView()

	v.Apply(stream.Event{Kind: stream.EventDelta, Text: "Hello "})
	v.Apply(stream.Event{Kind: stream.EventDelta, Text: "world"})
	v.Finish()

	if got := v.Message().Text; got != "Hello world" {
		t.Errorf("accumulated text = %q, want %q", got, "Hello world")
	}
	if got := surface.streaming[v.Message().ID]; got != "Hello world" {
		t.Errorf("finalized body = %q, want %q", got, "Hello world")
	}
	if !surface.finalized[v.Message().ID] {
		t.Error("message node not finalized")
	}
}

func TestViewRerendersFullTextEachDelta(t *testing.T) {
	v, _, renderer := newTestView()

	v.Apply(stream.Event{Kind: stream.EventDelta, Text: "a"})
	v.Apply(stream.Event{Kind: stream.EventDelta, Text: "b"})
	v.Apply(stream.Event{Kind: stream.EventDelta, Text: "c"})

	// One full render per delta, none of them the highlighting pass.
	if renderer.plainCalls+renderer.renderCalls != 3 {
		t.Errorf("progressive renders = %d, want 3", renderer.plainCalls+renderer.renderCalls)
	}
	if renderer.finalCalls != 0 {
		t.Errorf("final render ran %d times before finish, want 0", renderer.finalCalls)
	}
}

func TestViewIgnoresEventsAfterFinalize(t *testing.T) {
	v, surface, _ := newTestView()

	v.Apply(stream.Event{Kind: stream.EventDelta, Text: "done"})
	v.Finish()
	v.Apply(stream.Event{Kind: stream.EventDelta, Text: " extra"})

	if got := v.Message().Text; got != "done" {
		t.Errorf("text after post-finalize delta = %q, want %q", got, "done")
	}
	if surface.streaming[v.Message().ID] != "done" {
		t.Error("surface body changed after finalize")
	}
}

func TestViewIgnoresDeltasAfterError(t *testing.T) {
	v, surface, _ := newTestView()

	v.Apply(stream.Event{Kind: stream.EventDelta, Text: "partial"})
	v.Apply(stream.Event{Kind: stream.EventError, Text: "backend down"})
	before := len(surface.log)

	v.Apply(stream.Event{Kind: stream.EventDelta, Text: " more"})

	if len(surface.log) != before {
		t.Error("surface received updates after error state")
	}
	if v.Message().Text != "partial" {
		t.Errorf("text = %q, want accumulation frozen at %q", v.Message().Text, "partial")
	}
}

func TestViewCompleteFrameIsInformational(t *testing.T) {
	v, surface, _ := newTestView()

	v.Apply(stream.Event{Kind: stream.EventDelta, Text: "x"})
	v.Apply(stream.Event{Kind: stream.EventComplete})

	// Transport end-of-stream, not the complete frame, freezes the text.
	if surface.finalized[v.Message().ID] {
		t.Error("complete frame finalized the node; only Finish should")
	}

	v.Apply(stream.Event{Kind: stream.EventDelta, Text: "y"})
	if v.Message().Text != "xy" {
		t.Errorf("text = %q, deltas after complete frame must still apply", v.Message().Text)
	}
}

func TestTypingIndicatorIdempotent(t *testing.T) {
	surface := newFakeSurface()
	typing := &typingIndicator{surface: surface}

	typing.Show()
	typing.Show()
	typing.Hide()
	typing.Hide()

	shows, hides := 0, 0
	for _, op := range surface.log {
		switch op {
		case "typing:show":
			shows++
		case "typing:hide":
			hides++
		}
	}
	if shows != 1 || hides != 1 {
		t.Errorf("show/hide calls = %d/%d, want 1/1", shows, hides)
	}
}

func TestViewFailAppendsStreamError(t *testing.T) {
	v, surface, _ := newTestView()

	v.Apply(stream.Event{Kind: stream.EventDelta, Text: "half"})
	v.Fail()

	if surface.typingVisible {
		t.Error("typing indicator survived a transport failure")
	}
	last := surface.messages[len(surface.messages)-1]
	if last.Text != StreamErrorText {
		t.Errorf("failure message = %q, want %q", last.Text, StreamErrorText)
	}

	// Terminal state: a late Finish must not re-finalize.
	v.Finish()
	if surface.finalized[v.Message().ID] {
		t.Error("Finish after Fail finalized the node")
	}
}
