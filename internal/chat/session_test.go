package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"advisor-cli/internal/api"
	"advisor-cli/internal/config"
)

func newTestSession(client *fakeClient) (*Session, *fakeSurface, *fakeRenderer) {
	surface := newFakeSurface()
	renderer := &fakeRenderer{}
	s := NewSession(client, surface, renderer, Options{Detection: config.DetectHeuristic}, nil)
	return s, surface, renderer
}

func TestSendEmptyInputIsNoOp(t *testing.T) {
	client := &fakeClient{reply: &api.ChatReply{Response: "unused"}}
	s, surface, _ := newTestSession(client)

	s.Send(context.Background(), "")
	s.Send(context.Background(), "   \n\t ")

	if client.chatCalls != 0 {
		t.Errorf("chat calls = %d, want 0", client.chatCalls)
	}
	if len(surface.log) != 0 {
		t.Errorf("surface log = %v, want no activity", surface.log)
	}
}

func TestSendJSONReply(t *testing.T) {
	client := &fakeClient{reply: &api.ChatReply{Response: "Hello!"}}
	s, surface, _ := newTestSession(client)

	s.Send(context.Background(), "Hi")

	if len(surface.messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(surface.messages))
	}
	if surface.messages[0].Role != RoleUser || surface.messages[0].Text != "Hi" {
		t.Errorf("first message = %+v, want user %q", surface.messages[0], "Hi")
	}
	if surface.messages[1].Role != RoleAssistant || surface.messages[1].Text != "Hello!" {
		t.Errorf("second message = %+v, want assistant %q", surface.messages[1], "Hello!")
	}
	if surface.typingVisible {
		t.Error("typing indicator still visible after JSON reply")
	}
}

func TestSendStreamingEndToEnd(t *testing.T) {
	client := &fakeClient{stream: "data: {\"text\":\"The \"}\n" +
		"data: {\"text\":\"answer \"}\n" +
		"data: {\"text\":\"is 42.\"}\n"}
	s, surface, renderer := newTestSession(client)

	s.Send(context.Background(), "Explain")

	transcript := s.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("transcript = %d messages, want 2", len(transcript))
	}
	if got := transcript[1].Text; got != "The answer is 42." {
		t.Errorf("assistant text = %q, want %q", got, "The answer is 42.")
	}
	if renderer.finalCalls != 1 {
		t.Errorf("highlighting pass ran %d times, want exactly 1 at finalize", renderer.finalCalls)
	}
	if surface.typingVisible {
		t.Error("typing indicator still visible after stream completion")
	}
	if len(surface.finalized) != 1 {
		t.Errorf("finalized nodes = %d, want 1", len(surface.finalized))
	}
}

func TestTypingIndicatorHiddenOnFirstDelta(t *testing.T) {
	client := &fakeClient{stream: "data: {\"text\":\"Hello \"}\ndata: {\"text\":\"world\"}\n"}
	s, surface, _ := newTestSession(client)

	s.Send(context.Background(), "greet me")

	// typing:hide must come before the first stream:insert.
	hideIdx, insertIdx := -1, -1
	for i, op := range surface.log {
		if op == "typing:hide" && hideIdx == -1 {
			hideIdx = i
		}
		if op == "stream:insert" && insertIdx == -1 {
			insertIdx = i
		}
	}
	if hideIdx == -1 || insertIdx == -1 || hideIdx > insertIdx {
		t.Errorf("surface log = %v, want typing hidden before message insert", surface.log)
	}
	if got := s.Transcript()[1].Text; got != "Hello world" {
		t.Errorf("assistant text = %q, want %q", got, "Hello world")
	}
}

func TestStreamServerError(t *testing.T) {
	client := &fakeClient{stream: "data: {\"text\":\"partial \"}\n" +
		"data: {\"error\":\"model overloaded\"}\n"}
	s, surface, _ := newTestSession(client)

	s.Send(context.Background(), "Hi")

	if surface.typingVisible {
		t.Error("typing indicator still visible after error frame")
	}
	// The partial message node stays; a distinct error message follows.
	if len(surface.streaming) != 1 {
		t.Errorf("streaming nodes = %d, want partial message preserved", len(surface.streaming))
	}
	last := surface.messages[len(surface.messages)-1]
	if last.Role != RoleAssistant || last.Text == "partial " {
		t.Errorf("last message = %+v, want distinct error message", last)
	}
}

func TestMalformedFrameDoesNotAbortStream(t *testing.T) {
	client := &fakeClient{stream: "data: {not json}\ndata: {\"text\":\"x\"}\n"}
	s, _, _ := newTestSession(client)

	s.Send(context.Background(), "Hi")

	if got := s.Transcript()[1].Text; got != "x" {
		t.Errorf("assistant text = %q, want %q", got, "x")
	}
}

func TestZeroDeltaStream(t *testing.T) {
	client := &fakeClient{stream: "data: {\"complete\": true}\n"}
	s, surface, _ := newTestSession(client)

	s.Send(context.Background(), "Hi")

	if surface.typingVisible {
		t.Error("typing indicator still visible after empty stream")
	}
	if len(surface.streaming) != 0 {
		t.Error("empty stream inserted a message node")
	}
	// Only the user message is in the transcript.
	if got := len(s.Transcript()); got != 1 {
		t.Errorf("transcript = %d messages, want 1", got)
	}
}

func TestSendNetworkFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	s, surface, _ := newTestSession(client)

	s.Send(context.Background(), "Hi")

	if surface.typingVisible {
		t.Error("typing indicator still visible after network failure")
	}
	if len(surface.messages) != 2 {
		t.Fatalf("got %d messages, want user message plus apology", len(surface.messages))
	}
	if surface.messages[0].Text != "Hi" {
		t.Error("user message lost on network failure")
	}
	if surface.messages[1].Text != ApologyText {
		t.Errorf("fallback = %q, want fixed apology", surface.messages[1].Text)
	}
}

func TestOverlappingSendRejected(t *testing.T) {
	client := &fakeClient{
		reply: &api.ChatReply{Response: "slow answer"},
		block: make(chan struct{}),
	}
	s, surface, _ := newTestSession(client)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Send(context.Background(), "first")
	}()

	// Wait until the first send is inside the blocked Chat call.
	for {
		s.mu.Lock()
		busy := s.inFlight
		s.mu.Unlock()
		if busy {
			break
		}
	}

	s.Send(context.Background(), "second")
	close(client.block)
	wg.Wait()

	if client.chatCalls != 1 {
		t.Errorf("chat calls = %d, want 1 (second send rejected)", client.chatCalls)
	}
	for _, m := range surface.messages {
		if m.Text == "second" {
			t.Error("rejected send still appended its user message")
		}
	}
}

func TestSendAfterCancel(t *testing.T) {
	client := &fakeClient{
		reply:   &api.ChatReply{Response: "slow answer"},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	s, surface, _ := newTestSession(client)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Send(context.Background(), "first")
	}()

	<-client.started
	s.Cancel()
	close(client.block)
	wg.Wait()

	s.Send(context.Background(), "second")

	if client.chatCalls != 2 {
		t.Errorf("chat calls = %d, want 2: session stuck in-flight after Cancel", client.chatCalls)
	}
	replies := 0
	for _, m := range surface.messages {
		if m.Text == "slow answer" {
			replies++
		}
	}
	if replies != 1 {
		t.Errorf("reply appeared %d times, want 1 (canceled send suppressed, second landed)", replies)
	}
	if surface.typingVisible {
		t.Error("typing indicator still visible after second send completed")
	}
}

func TestCancelDuringSendIsSilent(t *testing.T) {
	client := &fakeClient{waitCtx: true, started: make(chan struct{})}
	s, surface, _ := newTestSession(client)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Send(context.Background(), "Hi")
	}()

	<-client.started
	s.Cancel()
	wg.Wait()

	for _, m := range surface.messages {
		if m.Text == ApologyText {
			t.Error("canceled send appended the apology message")
		}
	}
	if got := len(surface.messages); got != 1 {
		t.Errorf("messages = %d, want only the user message", got)
	}
	if surface.typingVisible {
		t.Error("typing indicator survived cancellation")
	}
}

func TestClearHistoryDeclined(t *testing.T) {
	client := &fakeClient{}
	s, surface, _ := newTestSession(client)
	surface.confirmAnswer = false

	s.ClearHistory(context.Background())

	if client.clearCalls != 0 {
		t.Errorf("clear calls = %d, want 0 when declined", client.clearCalls)
	}
	if surface.resetCalls != 0 {
		t.Error("surface reset despite declined confirmation")
	}
}

func TestClearHistoryConfirmed(t *testing.T) {
	client := &fakeClient{reply: &api.ChatReply{Response: "Hello!"}}
	s, surface, _ := newTestSession(client)
	s.Send(context.Background(), "Hi")

	surface.confirmAnswer = true
	s.ClearHistory(context.Background())

	if client.clearCalls != 1 {
		t.Errorf("clear calls = %d, want 1", client.clearCalls)
	}
	if surface.resetCalls != 1 {
		t.Errorf("reset calls = %d, want 1", surface.resetCalls)
	}
	transcript := s.Transcript()
	if len(transcript) != 1 || transcript[0].Text != WelcomeText {
		t.Errorf("transcript after clear = %+v, want single welcome message", transcript)
	}
}

func TestClearHistoryRequestFails(t *testing.T) {
	client := &fakeClient{
		reply:    &api.ChatReply{Response: "Hello!"},
		clearErr: errors.New("boom"),
	}
	s, surface, _ := newTestSession(client)
	s.Send(context.Background(), "Hi")
	before := len(s.Transcript())

	surface.confirmAnswer = true
	s.ClearHistory(context.Background())

	if len(surface.alerts) != 1 || surface.alerts[0] != ClearFailedText {
		t.Errorf("alerts = %v, want single clear-failed alert", surface.alerts)
	}
	if got := len(s.Transcript()); got != before {
		t.Errorf("transcript mutated on failed clear: %d messages, want %d", got, before)
	}
	if surface.resetCalls != 0 {
		t.Error("surface reset despite failed clear request")
	}
}

func TestLoadHistory(t *testing.T) {
	client := &fakeClient{history: []api.HistoryEntry{
		{Role: "user", Content: "Hi"},
		{Role: "assistant", Content: "Hello!"},
	}}
	s, surface, _ := newTestSession(client)

	if err := s.LoadHistory(context.Background()); err != nil {
		t.Fatalf("LoadHistory() error = %v", err)
	}
	if len(surface.messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(surface.messages))
	}
	if surface.messages[0].Role != RoleUser || surface.messages[1].Role != RoleAssistant {
		t.Errorf("replayed roles = %v, %v", surface.messages[0].Role, surface.messages[1].Role)
	}
}
