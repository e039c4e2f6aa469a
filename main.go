package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"advisor-cli/internal/api"
	"advisor-cli/internal/chat"
	"advisor-cli/internal/config"
	"advisor-cli/internal/display"
	"advisor-cli/internal/export"
	"advisor-cli/internal/markdown"
	"advisor-cli/internal/tui"
)

const version = "0.1.0"

var (
	activeProfile string
	debugMode     bool
)

func main() {
	args := os.Args[1:]

	// Parse global flags first (--profile)
	args = parseGlobalFlags(args)

	// No args → launch interactive mode (default)
	if len(args) == 0 {
		if err := tui.Run(version, activeProfile); err != nil {
			display.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	// Explicit -i flag also launches interactive mode
	if args[0] == "-i" || args[0] == "--interactive" || args[0] == "interactive" {
		if err := tui.Run(version, activeProfile); err != nil {
			display.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	var err error

	switch args[0] {
	case "login":
		err = cmdLogin(args[1:])
	case "refresh":
		err = cmdRefresh()
	case "set":
		err = cmdSet(args[1:])
	case "config":
		err = cmdConfig()
	case "ask":
		err = cmdAsk(args[1:])
	case "history":
		err = cmdHistory()
	case "clear":
		err = cmdClear(args[1:])
	case "export":
		err = cmdExport(args[1:])
	case "profiles":
		err = cmdProfiles()
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Printf("advisor %s\n", version)
	default:
		display.Error(fmt.Sprintf("Unknown command: %s", args[0]))
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		display.Error(err.Error())
		os.Exit(1)
	}
}

// ─── login ───────────────────────────────────────────────────────────────────

func cmdLogin(args []string) error {
	var username, password string
	var positional []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-u", "--username":
			if i+1 < len(args) {
				i++
				username = args[i]
			} else {
				return fmt.Errorf("--username requires a value")
			}
		case "-p", "--password":
			if i+1 < len(args) {
				i++
				password = args[i]
			} else {
				return fmt.Errorf("--password requires a value")
			}
		default:
			positional = append(positional, args[i])
		}
	}

	if len(positional) == 0 {
		fmt.Println("Usage: advisor login <url> -u <username> -p <password>")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  advisor login https://advisor.example.com -u user@company.com -p pass")
		fmt.Println("  advisor login http://localhost:5000 -u admin -p mypassword")
		return nil
	}

	serverURL := strings.TrimRight(positional[0], "/")

	if username == "" {
		fmt.Print("Username/Email: ")
		fmt.Scanln(&username)
	}
	if password == "" {
		fmt.Print("Password: ")
		fmt.Scanln(&password)
	}

	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}

	fmt.Println()
	display.Spinner("Authenticating...")

	client := api.NewClientWithServer(serverURL)
	tok, err := client.Login(context.Background(), username, password)
	if err != nil {
		display.ClearLine()
		return fmt.Errorf("authentication failed: %w", err)
	}

	display.ClearLine()
	display.Success("Authenticated successfully")

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}

	cfg.Server = serverURL
	cfg.Username = username
	cfg.AccessToken = tok.AccessToken
	cfg.RefreshToken = tok.RefreshToken

	if err := cfg.Save(); err != nil {
		return err
	}

	display.Info("Server:", serverURL)
	display.Info("User:", username)

	pf := ""
	if activeProfile != "" {
		pf = " --profile " + activeProfile
	}

	fmt.Println()
	fmt.Printf("  %sNext:%s Run %sadvisor%s ask \"<question>\"%s or just %sadvisor%s%s for interactive mode.\n\n",
		display.Dim, display.Reset, display.Cyan, pf, display.Reset, display.Cyan, pf, display.Reset)

	return nil
}

// ─── refresh ────────────────────────────────────────────────────────────────

func cmdRefresh() error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.RefreshToken == "" {
		return fmt.Errorf("no refresh token on file. Run: advisor login <url> -u <user> -p <pass>")
	}

	client := api.NewClient(cfg)
	tok, err := client.RefreshToken(context.Background(), cfg.RefreshToken)
	if err != nil {
		return fmt.Errorf("refreshing token: %w", err)
	}

	cfg.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		cfg.RefreshToken = tok.RefreshToken
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	display.Success("Token refreshed")
	return nil
}

// ─── set ────────────────────────────────────────────────────────────────────

func cmdSet(args []string) error {
	if len(args) < 2 {
		fmt.Println("Usage: advisor set <key> <value>")
		fmt.Println()
		fmt.Println("Keys:")
		fmt.Println("  server     Advisor server URL (e.g. http://localhost:5000)")
		fmt.Println("  token      Access token")
		fmt.Println("  detection  Markdown detection mode: heuristic | always")
		return nil
	}

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}

	key, value := args[0], args[1]

	switch key {
	case "server":
		cfg.Server = strings.TrimRight(value, "/")
	case "token":
		cfg.AccessToken = value
	case "detection":
		if value != config.DetectHeuristic && value != config.DetectAlways {
			return fmt.Errorf("invalid detection mode: %s (valid: %s, %s)", value, config.DetectHeuristic, config.DetectAlways)
		}
		cfg.MarkdownDetection = value
	default:
		return fmt.Errorf("unknown config key: %s (valid: server, token, detection)", key)
	}

	if err := cfg.Save(); err != nil {
		return err
	}

	display.Success(fmt.Sprintf("%s set to %s", key, value))
	return nil
}

// ─── config ─────────────────────────────────────────────────────────────────

func cmdConfig() error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}

	display.Header("Advisor CLI Configuration")

	display.Info("Profile:", config.ProfileName(activeProfile))

	server := cfg.Server
	if server == "" {
		server = display.Dim + "(not set)" + display.Reset
	}
	display.Info("Server:", server)

	username := cfg.Username
	if username == "" {
		username = display.Dim + "(not set)" + display.Reset
	}
	display.Info("User:", username)

	token := display.Dim + "(not set)" + display.Reset
	if cfg.AccessToken != "" {
		token = truncate(cfg.AccessToken, 15)
	}
	display.Info("Token:", token)

	display.Info("Detection:", cfg.Detection())
	fmt.Println()

	return nil
}

// ─── ask ────────────────────────────────────────────────────────────────────

func cmdAsk(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: advisor ask <question>")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println(`  advisor ask "What should I look at first?"`)
		fmt.Println(`  advisor ask "Summarize my options in a table"`)
		return nil
	}
	question := strings.Join(args, " ")

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := api.NewClient(cfg)
	surface := newTermSurface(false)
	session := chat.NewSession(client, surface, markdown.NewTerm(100), chat.Options{Detection: cfg.Detection()}, newLogger())

	session.Send(context.Background(), question)
	return nil
}

// ─── history ────────────────────────────────────────────────────────────────

func cmdHistory() error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := api.NewClient(cfg)

	history, err := client.ConversationHistory(context.Background())
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	display.Header(fmt.Sprintf("Conversation History (%d messages)", len(history)))

	if len(history) == 0 {
		display.Warn("No messages yet.")
		return nil
	}

	term := markdown.NewTerm(100)
	for _, entry := range history {
		fmt.Printf("\n  %s\n", display.RoleLabel(entry.Role))
		body := entry.Content
		if entry.Role == "assistant" && markdown.IsMarkdown(entry.Content) {
			body = term.RenderFinal(entry.Content, true)
		}
		for _, line := range strings.Split(body, "\n") {
			fmt.Printf("    %s\n", line)
		}
	}

	fmt.Println()
	return nil
}

// ─── clear ──────────────────────────────────────────────────────────────────

func cmdClear(args []string) error {
	assumeYes := false
	for _, a := range args {
		if a == "-y" || a == "--yes" {
			assumeYes = true
		}
	}

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := api.NewClient(cfg)
	surface := newTermSurface(assumeYes)
	session := chat.NewSession(client, surface, markdown.NewTerm(100), chat.Options{Detection: cfg.Detection()}, newLogger())

	session.ClearHistory(context.Background())
	return nil
}

// ─── export ─────────────────────────────────────────────────────────────────

func cmdExport(args []string) error {
	path := "advisor-transcript.html"
	if len(args) > 0 {
		path = args[0]
	}

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := api.NewClient(cfg)

	history, err := client.ConversationHistory(context.Background())
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	if len(history) == 0 {
		display.Warn("Nothing to export: the conversation is empty.")
		return nil
	}

	var messages []chat.Message
	for _, entry := range history {
		messages = append(messages, chat.NewMessage(chat.Role(entry.Role), entry.Content))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := export.NewExporter().WriteTranscript(f, "Advisor Session", messages); err != nil {
		return err
	}

	display.Success(fmt.Sprintf("Transcript written to %s (%d messages)", path, len(messages)))
	return nil
}

// ─── profiles ───────────────────────────────────────────────────────────────

func cmdProfiles() error {
	profiles, err := config.ListProfiles()
	if err != nil {
		return err
	}

	display.Header(fmt.Sprintf("Profiles (%d)", len(profiles)))

	if len(profiles) == 0 {
		display.Warn("No profiles found.")
		return nil
	}

	for _, p := range profiles {
		marker := " "
		if p == config.ProfileName(activeProfile) {
			marker = display.Green + "●" + display.Reset
		}
		fmt.Printf("  %s %s\n", marker, p)
	}
	fmt.Println()

	return nil
}

// ─── terminal surface ───────────────────────────────────────────────────────
//
// termSurface is the plain-stdout presentation for one-shot commands.
// Streamed text prints incrementally: each update carries the full
// accumulated text, and only the unseen suffix goes to the terminal.

type termSurface struct {
	printed   int
	assumeYes bool
}

func newTermSurface(assumeYes bool) *termSurface {
	return &termSurface{assumeYes: assumeYes}
}

func (s *termSurface) AppendMessage(m chat.Message, body string) {
	switch m.Role {
	case chat.RoleUser:
		fmt.Printf("\n%s❯%s %s\n", display.Cyan, display.Reset, body)
	default:
		fmt.Printf("\n%s\n", body)
	}
}

func (s *termSurface) ShowTyping() { display.Spinner("Thinking...") }
func (s *termSurface) HideTyping() { display.ClearLine() }

func (s *termSurface) InsertStreaming(m chat.Message) {
	s.printed = 0
	fmt.Println()
}

func (s *termSurface) UpdateStreaming(id, body string) {
	if len(body) > s.printed {
		fmt.Print(body[s.printed:])
		s.printed = len(body)
	}
}

// FinalizeStreaming just terminates the line: the raw text already
// printed incrementally, and a dumb terminal cannot swap it for the
// styled render.
func (s *termSurface) FinalizeStreaming(id, body string) {
	fmt.Println()
}

func (s *termSurface) ScrollToBottom() {}

func (s *termSurface) Confirm(prompt string) bool {
	if s.assumeYes {
		return true
	}
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func (s *termSurface) Alert(text string) {
	display.Warn(text)
}

func (s *termSurface) Reset(welcome chat.Message, body string) {
	display.Success("History cleared")
	fmt.Printf("\n%s\n", body)
}

// ─── helpers ────────────────────────────────────────────────────────────────

func parseGlobalFlags(args []string) []string {
	var remaining []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--profile":
			if i+1 < len(args) {
				i++
				activeProfile = args[i]
			}
		case "--debug":
			debugMode = true
		default:
			remaining = append(remaining, args[i])
		}
	}
	return remaining
}

// newLogger keeps stderr quiet below warnings unless --debug is set.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if debugMode {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// ─── usage ──────────────────────────────────────────────────────────────────

func printUsage() {
	fmt.Printf(`%sAdvisor CLI%s — AI assistant chat client (v%s)

%sUsage:%s
  advisor                                            Launch interactive mode (default)
  advisor [--profile <name>] <command> [arguments]   Run a specific command

%sGetting Started:%s
  login <url> -u <user> -p <pass>  Authenticate against an advisor server
  config                           Show current configuration

%sSettings:%s
  set server <url>          Set the server URL
  set token <token>         Manually set the access token
  set detection <mode>      Markdown detection: heuristic | always
  refresh                   Renew the access token

%sChat:%s
  ask "<question>"          Ask a one-shot question (streams the answer)
  history                   Show the stored conversation
  clear [-y]                Clear the stored conversation
  export [file]             Export the conversation as an HTML page

%sProfiles:%s
  profiles                    List all config profiles
  --profile <name>            Use a named config profile (default: unnamed)
  --debug                     Verbose diagnostics on stderr

%sExamples:%s
  advisor                                            # Start interactive mode
  advisor login http://localhost:5000 -u admin -p secret
  advisor ask "What should I focus on this week?"
  advisor export my-session.html
  advisor --profile staging config

`, display.Bold, display.Reset, version,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset)
}
