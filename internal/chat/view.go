package chat

import (
	"io"
	"log/slog"
	"sync"

	"advisor-cli/internal/config"
	"advisor-cli/internal/markdown"
	"advisor-cli/internal/stream"
)

// View lifecycle. Errored and Finalized are terminal.
type viewState int

const (
	stateAwaitingFirstToken viewState = iota
	stateStreaming
	stateFinalized
	stateErrored
)

// StreamingMessageView owns the UI state of one in-progress assistant
// message: it applies decoded stream events in arrival order, re-renders
// the accumulated text on every delta, and coordinates the typing
// indicator with the surface.
type StreamingMessageView struct {
	surface   Surface
	renderer  Renderer
	detection string
	log       *slog.Logger

	state    viewState
	msg      Message
	inserted bool
	typing   *typingIndicator
}

// typingIndicator guards the surface's single indicator slot. Hide is
// idempotent; at most one indicator exists per session at any time. The
// mutex covers the one cross-goroutine caller, Session.Cancel.
type typingIndicator struct {
	surface Surface

	mu    sync.Mutex
	shown bool
}

func (t *typingIndicator) Show() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.shown {
		t.surface.ShowTyping()
		t.shown = true
	}
}

func (t *typingIndicator) Hide() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.shown {
		t.surface.HideTyping()
		t.shown = false
	}
}

func newStreamingMessageView(surface Surface, renderer Renderer, detection string, typing *typingIndicator, log *slog.Logger) *StreamingMessageView {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &StreamingMessageView{
		surface:   surface,
		renderer:  renderer,
		detection: detection,
		log:       log,
		state:     stateAwaitingFirstToken,
		msg:       NewMessage(RoleAssistant, ""),
		typing:    typing,
	}
}

// Apply folds one decoded event into the view. Events arrive in transport
// order; nothing is reordered or coalesced here.
func (v *StreamingMessageView) Apply(ev stream.Event) {
	if v.state == stateFinalized || v.state == stateErrored {
		return
	}

	switch ev.Kind {
	case stream.EventDelta:
		v.applyDelta(ev.Text)

	case stream.EventError:
		// The partial message stays visible; the error is surfaced as a
		// distinct message. The stream may keep going after this.
		v.typing.Hide()
		errMsg := NewMessage(RoleAssistant, ApologyText+" ("+ev.Text+")")
		v.surface.AppendMessage(errMsg, errMsg.Text)
		v.state = stateErrored

	case stream.EventComplete:
		// Informational only. Transport end-of-stream is authoritative.
		v.log.Debug("server signaled logical stream completion")
	}
}

func (v *StreamingMessageView) applyDelta(delta string) {
	if v.state == stateAwaitingFirstToken {
		v.typing.Hide()
		v.state = stateStreaming
	}

	v.msg.Text += delta
	if !v.inserted {
		v.surface.InsertStreaming(v.msg)
		v.inserted = true
	}
	v.surface.UpdateStreaming(v.msg.ID, v.rendered(false))
	v.surface.ScrollToBottom()
}

// Finish handles transport end-of-stream: one final render pass with
// syntax highlighting, then the text freezes. Removing the typing
// indicator here is a no-op when a delta already removed it, but it is
// the only removal on a zero-delta stream.
func (v *StreamingMessageView) Finish() {
	if v.state == stateFinalized || v.state == stateErrored {
		v.typing.Hide()
		return
	}

	v.typing.Hide()
	if !v.inserted {
		// Empty-but-non-error completion: no message node was ever
		// created and none is added now.
		v.log.Debug("stream ended with no content")
		v.state = stateFinalized
		return
	}

	v.surface.FinalizeStreaming(v.msg.ID, v.rendered(true))
	v.surface.ScrollToBottom()
	v.state = stateFinalized
}

// Fail handles a transport-level read error mid-stream: the indicator
// goes away and a fixed error message is appended.
func (v *StreamingMessageView) Fail() {
	if v.state == stateFinalized || v.state == stateErrored {
		return
	}
	v.typing.Hide()
	errMsg := NewMessage(RoleAssistant, StreamErrorText)
	v.surface.AppendMessage(errMsg, errMsg.Text)
	v.state = stateErrored
}

// Message returns the accumulated message.
func (v *StreamingMessageView) Message() Message {
	return v.msg
}

// rendered produces the current body from the full accumulated text;
// nothing is patched incrementally.
func (v *StreamingMessageView) rendered(final bool) string {
	return renderBody(v.renderer, v.detection, v.msg.Text, final)
}

// renderBody applies the render rule: Markdown when configured always-on
// or when the classifier says so, paragraph blocks otherwise. Finalization
// always goes through RenderFinal, whatever the classification, so every
// message gets exactly one final pass.
func renderBody(r Renderer, detection, text string, final bool) string {
	asMarkdown := detection == config.DetectAlways || markdown.IsMarkdown(text)
	if final {
		return r.RenderFinal(text, asMarkdown)
	}
	if asMarkdown {
		return r.Render(text)
	}
	return r.RenderPlain(text)
}
