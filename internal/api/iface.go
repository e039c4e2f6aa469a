package api

import "context"

// AdvisorAPI is the surface of Client the chat session and TUI depend on.
// Kept as an interface so tests can substitute a fake backend.
type AdvisorAPI interface {
	Chat(ctx context.Context, message string) (*ChatResult, error)
	ConversationHistory(ctx context.Context) ([]HistoryEntry, error)
	ClearHistory(ctx context.Context) (*ClearResponse, error)
}

var _ AdvisorAPI = (*Client)(nil)
