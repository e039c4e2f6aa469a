package chat

// Fixed user-facing strings. All failures collapse to one apology by
// design; there is no error-code taxonomy in the UI.
const (
	ApologyText      = "Sorry, something went wrong. Please try again."
	StreamErrorText  = "Sorry, an error occurred while reading the response. Please try again."
	ClearFailedText  = "Failed to clear the chat history. Please try again."
	WelcomeText      = "Hello! I'm your Advisor AI assistant. Ask me anything about your plans and I'll do my best to help."
	ConfirmClearText = "Clear the chat history?"
)

// Surface is the presentation layer the session and view draw on — the
// terminal stand-in for the chat DOM subtree. Implementations must treat
// HideTyping and ScrollToBottom as idempotent no-ops when there is
// nothing to do. All calls for one session arrive from one goroutine at
// a time.
type Surface interface {
	// AppendMessage adds a completed message with its rendered body.
	AppendMessage(m Message, body string)

	// ShowTyping and HideTyping manage the single typing-indicator slot.
	ShowTyping()
	HideTyping()

	// InsertStreaming adds the in-progress assistant message node. It is
	// called at most once per streamed message, on the first delta.
	InsertStreaming(m Message)
	// UpdateStreaming replaces the rendered body of the in-progress node.
	UpdateStreaming(id, body string)
	// FinalizeStreaming installs the final rendered body and marks the
	// node complete.
	FinalizeStreaming(id, body string)

	ScrollToBottom()

	// Confirm blocks for a yes/no answer to a destructive action.
	Confirm(prompt string) bool
	// Alert surfaces a blocking notice (clear-history failure).
	Alert(text string)
	// Reset empties the transcript and shows the welcome message.
	Reset(welcome Message, body string)
}

// Renderer turns accumulated message text into a Surface-ready body.
// While streaming, Render runs on every delta of Markdown text and
// RenderPlain on every delta of plain text. RenderFinal runs exactly once
// per message, at finalization, regardless of classification; asMarkdown
// carries the classifier's verdict on the frozen text, and the Markdown
// path is where syntax highlighting happens.
type Renderer interface {
	Render(text string) string
	RenderFinal(text string, asMarkdown bool) string
	RenderPlain(text string) string
}
