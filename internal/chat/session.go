package chat

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"advisor-cli/internal/api"
	"advisor-cli/internal/stream"
)

// Options collapse the per-page variants of the original product into
// one parametrized session.
type Options struct {
	// Detection is config.DetectHeuristic or config.DetectAlways.
	Detection string
}

// Session orchestrates one conversation: it dispatches user input,
// branches on the response shape, feeds stream events into a
// StreamingMessageView, and guarantees the typing indicator never
// outlives a request. The indicator slot and the active stream are
// session fields, not globals, so several sessions can coexist.
type Session struct {
	client  api.AdvisorAPI
	surface Surface
	render  Renderer
	opts    Options
	log     *slog.Logger

	mu       sync.Mutex
	inFlight bool
	gen      int
	cancel   context.CancelFunc

	typing     *typingIndicator
	transcript []Message
}

func NewSession(client api.AdvisorAPI, surface Surface, render Renderer, opts Options, log *slog.Logger) *Session {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		client:  client,
		surface: surface,
		render:  render,
		opts:    opts,
		log:     log,
		typing:  &typingIndicator{surface: surface},
	}
}

// Send submits one user message. Empty or whitespace-only input is a
// no-op, and a send while another is in flight is rejected. The only
// observable effects are surface updates; failures surface as the fixed
// apology message, never as a stuck typing indicator.
func (s *Session) Send(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		s.log.Debug("send rejected, request already in flight")
		return
	}
	s.inFlight = true
	s.gen++
	gen := s.gen
	// Cancel any previous still-open stream before starting a new one.
	if s.cancel != nil {
		s.cancel()
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.gen == gen {
			s.inFlight = false
		}
		s.mu.Unlock()
	}()

	// The user's message always lands, even when the request fails.
	userMsg := NewMessage(RoleUser, text)
	s.transcript = append(s.transcript, userMsg)
	s.surface.AppendMessage(userMsg, userMsg.Text)
	s.surface.ScrollToBottom()

	s.typing.Show()

	result, err := s.client.Chat(ctx, text)
	if s.stale(gen) || ctx.Err() != nil {
		// Canceled while the request was out. Whatever came back, reply
		// or error, is stale and must not touch the surface.
		if result != nil && result.Stream != nil {
			result.Stream.Close()
		}
		return
	}
	if err != nil {
		s.log.Warn("chat request failed", "err", err)
		s.fail(ApologyText)
		return
	}

	if result.Reply != nil {
		s.typing.Hide()
		s.appendAssistant(result.Reply.Response)
		return
	}

	s.consumeStream(ctx, gen, result.Stream)
}

// consumeStream reads the response body chunk by chunk, decodes frames,
// and applies each event to the view in arrival order. A stale
// generation (a newer Send started) turns the rest of the stream into
// no-ops.
func (s *Session) consumeStream(ctx context.Context, gen int, body io.ReadCloser) {
	defer body.Close()

	decoder := stream.NewDecoder(s.log)
	view := newStreamingMessageView(s.surface, s.render, s.opts.Detection, s.typing, s.log)

	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if s.stale(gen) {
				return
			}
			for _, ev := range decoder.Feed(buf[:n]) {
				view.Apply(ev)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if s.stale(gen) || ctx.Err() != nil {
				return
			}
			s.log.Warn("stream read failed", "err", err)
			view.Fail()
			return
		}
	}

	if s.stale(gen) {
		return
	}
	decoder.Finish()
	view.Finish()
	if msg := view.Message(); msg.Text != "" {
		s.transcript = append(s.transcript, msg)
	}
}

func (s *Session) stale(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen != gen
}

func (s *Session) fail(text string) {
	s.typing.Hide()
	errMsg := NewMessage(RoleAssistant, text)
	s.surface.AppendMessage(errMsg, errMsg.Text)
	s.surface.ScrollToBottom()
}

func (s *Session) appendAssistant(text string) {
	msg := NewMessage(RoleAssistant, text)
	s.transcript = append(s.transcript, msg)
	s.surface.AppendMessage(msg, s.renderBody(text))
	s.surface.ScrollToBottom()
}

// LoadHistory replays the stored conversation into the surface.
func (s *Session) LoadHistory(ctx context.Context) error {
	history, err := s.client.ConversationHistory(ctx)
	if err != nil {
		return err
	}
	for _, entry := range history {
		msg := NewMessage(Role(entry.Role), entry.Content)
		s.transcript = append(s.transcript, msg)
		if msg.Role == RoleUser {
			s.surface.AppendMessage(msg, msg.Text)
		} else {
			s.surface.AppendMessage(msg, s.renderBody(msg.Text))
		}
	}
	s.surface.ScrollToBottom()
	return nil
}

// ClearHistory asks for confirmation, clears the server-side history,
// and resets the transcript to a single welcome message. A declined
// confirmation or a failed request leaves everything untouched.
func (s *Session) ClearHistory(ctx context.Context) {
	if !s.surface.Confirm(ConfirmClearText) {
		return
	}

	if _, err := s.client.ClearHistory(ctx); err != nil {
		s.log.Warn("clear history failed", "err", err)
		s.surface.Alert(ClearFailedText)
		return
	}

	s.transcript = nil
	welcome := NewMessage(RoleAssistant, WelcomeText)
	s.transcript = append(s.transcript, welcome)
	s.surface.Reset(welcome, welcome.Text)
}

// Transcript returns the messages accumulated so far, in order.
func (s *Session) Transcript() []Message {
	return s.transcript
}

// Cancel releases any in-flight request and clears the busy state so the
// next Send proceeds. Pending callbacks of the canceled request become
// no-ops.
func (s *Session) Cancel() {
	s.mu.Lock()
	s.gen++
	s.inFlight = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	// The canceled request will not hide the indicator itself; its
	// callbacks are already stale.
	s.typing.Hide()
}

func (s *Session) renderBody(text string) string {
	return renderBody(s.render, s.opts.Detection, text, true)
}
