package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"advisor-cli/internal/config"
)

// Client talks to the advisor backend. A token, when present, rides along
// as a Bearer header; its absence degrades requests to unauthenticated
// rather than blocking them.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.Server, "/"),
		// No request timeout: a streamed chat response stays open for as
		// long as the model keeps talking. Cancellation happens through
		// the request context.
		httpClient: &http.Client{},
		token:      cfg.AccessToken,
	}
}

func NewClientWithServer(server string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(server, "/"),
		httpClient: &http.Client{},
	}
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// --- Authentication ---

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// Login exchanges credentials for tokens at POST /token. The endpoint
// speaks the OAuth2 password flow, so the body is form-encoded.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var tok TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &tok, nil
}

// RefreshToken trades a refresh token for a fresh token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	reqBody := struct {
		RefreshToken string `json:"refresh_token"`
	}{RefreshToken: refreshToken}

	var tok TokenResponse
	if err := c.doJSON(ctx, "POST", "/refresh-token", reqBody, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// --- Chat ---

type ChatRequest struct {
	Message string `json:"message"`
}

// ChatReply is the non-streaming JSON reply shape.
type ChatReply struct {
	Response   string `json:"response"`
	PromptName string `json:"prompt_name,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
}

// ChatResult holds whichever of the two response shapes the server chose.
// Exactly one field is set: Reply for application/json, Stream for
// text/event-stream. The caller owns closing Stream.
type ChatResult struct {
	Reply  *ChatReply
	Stream io.ReadCloser
}

// Chat posts a user message and branches on the response content type.
func (c *Client) Chat(ctx context.Context, message string) (*ChatResult, error) {
	body, err := json.Marshal(ChatRequest{Message: message})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, true)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(errBody))
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		return &ChatResult{Stream: resp.Body}, nil
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	var reply ChatReply
	if err := json.Unmarshal(respBody, &reply); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &ChatResult{Reply: &reply}, nil
}

// --- History ---

// HistoryEntry is one turn of the stored conversation.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationHistory returns the stored conversation in order.
func (c *Client) ConversationHistory(ctx context.Context) ([]HistoryEntry, error) {
	var history []HistoryEntry
	if err := c.doJSON(ctx, "GET", "/conversation_history", nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

type ClearResponse struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// ClearHistory wipes the server-side conversation.
func (c *Client) ClearHistory(ctx context.Context) (*ClearResponse, error) {
	var resp ClearResponse
	if err := c.doJSON(ctx, "POST", "/clear", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Generic JSON helper ---

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody interface{}, result interface{}) error {
	var bodyReader io.Reader
	hasBody := reqBody != nil && method != "GET"
	if hasBody {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, hasBody)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}
