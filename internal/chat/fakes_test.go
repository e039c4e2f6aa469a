package chat

import (
	"context"
	"io"
	"strings"

	"advisor-cli/internal/api"
)

// fakeSurface records every presentation call in order.
type fakeSurface struct {
	log []string

	messages      []Message
	typingVisible bool
	streaming     map[string]string
	finalized     map[string]bool

	confirmAnswer bool
	confirmCalls  int
	alerts        []string
	resetCalls    int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		streaming: make(map[string]string),
		finalized: make(map[string]bool),
	}
}

func (f *fakeSurface) AppendMessage(m Message, body string) {
	f.log = append(f.log, "append:"+string(m.Role))
	f.messages = append(f.messages, m)
}

func (f *fakeSurface) ShowTyping() {
	f.log = append(f.log, "typing:show")
	f.typingVisible = true
}

func (f *fakeSurface) HideTyping() {
	f.log = append(f.log, "typing:hide")
	f.typingVisible = false
}

func (f *fakeSurface) InsertStreaming(m Message) {
	f.log = append(f.log, "stream:insert")
	f.streaming[m.ID] = ""
}

func (f *fakeSurface) UpdateStreaming(id, body string) {
	f.log = append(f.log, "stream:update")
	f.streaming[id] = body
}

func (f *fakeSurface) FinalizeStreaming(id, body string) {
	f.log = append(f.log, "stream:finalize")
	f.streaming[id] = body
	f.finalized[id] = true
}

func (f *fakeSurface) ScrollToBottom() {}

func (f *fakeSurface) Confirm(prompt string) bool {
	f.confirmCalls++
	return f.confirmAnswer
}

func (f *fakeSurface) Alert(text string) {
	f.alerts = append(f.alerts, text)
}

func (f *fakeSurface) Reset(welcome Message, body string) {
	f.resetCalls++
	f.messages = []Message{welcome}
}

// fakeRenderer passes text through and counts the highlighting pass.
type fakeRenderer struct {
	renderCalls int
	finalCalls  int
	plainCalls  int
}

func (r *fakeRenderer) Render(text string) string {
	r.renderCalls++
	return text
}

func (r *fakeRenderer) RenderFinal(text string, asMarkdown bool) string {
	r.finalCalls++
	return text
}

func (r *fakeRenderer) RenderPlain(text string) string {
	r.plainCalls++
	return text
}

// fakeClient is a scripted backend.
type fakeClient struct {
	chatCalls  int
	clearCalls int

	reply  *api.ChatReply
	stream string
	err    error

	history    []api.HistoryEntry
	historyErr error
	clearErr   error

	// When set, Chat closes started on its first call, then blocks until
	// block closes (or, with waitCtx, until the context is canceled).
	block   chan struct{}
	started chan struct{}
	waitCtx bool
}

func (f *fakeClient) Chat(ctx context.Context, message string) (*api.ChatResult, error) {
	f.chatCalls++
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.waitCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.reply != nil {
		return &api.ChatResult{Reply: f.reply}, nil
	}
	return &api.ChatResult{Stream: io.NopCloser(strings.NewReader(f.stream))}, nil
}

func (f *fakeClient) ConversationHistory(ctx context.Context) ([]api.HistoryEntry, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func (f *fakeClient) ClearHistory(ctx context.Context) (*api.ClearResponse, error) {
	f.clearCalls++
	if f.clearErr != nil {
		return nil, f.clearErr
	}
	return &api.ClearResponse{Status: "success"}, nil
}
