// chat.go - Interactive chat command handler for the opusagent CLI.
//
// Handles the default command, which opens a REPL conversation with the
// configured Claude model.
//
// Interactive Commands (during chat):
//   /help               Show available commands
//   /history [n]        Show last n messages (default 5)
//   /search <term>      Search conversation history
//   /stats              Show conversation statistics
//   /config             Show current configuration
//   /export <format>    Export conversation (json|txt|md|html)
//   /clear              Clear conversation history
//   /files              List available files for inclusion
//   /info               Show agent information
//   /quit               Exit chat
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"github.com/jeranaias/opusagent/internal/agent"
	"github.com/jeranaias/opusagent/internal/config"
	"github.com/jeranaias/opusagent/internal/model"
	"github.com/jeranaias/opusagent/internal/usage"
	"github.com/jeranaias/opusagent/internal/util"
)

// markdownRenderer renders buffered assistant replies for the terminal.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display, falling
// back to the raw text if the renderer is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with persistent input history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyDir, err := config.SettingsDir()
	if err != nil {
		historyDir = os.TempDir()
	}
	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(historyDir, "input_history"),
	}

	if f, err := os.Open(cli.historyFile); err == nil {
		cli.line.ReadHistory(f)
		f.Close()
	}
	return cli
}

// ReadInput reads one line with history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0755); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for one interactive chat session.
type ChatSession struct {
	Agent    *agent.Agent
	InputCLI *ChatCLI

	StartTime time.Time

	// mu guards cancelFunc, which the signal goroutine races against
	// the REPL loop.
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

func (s *ChatSession) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancelFunc = cancel
	s.mu.Unlock()
}

// takeCancel returns the in-flight cancel function and clears it, so one
// signal cancels at most one request.
func (s *ChatSession) takeCancel() context.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel := s.cancelFunc
	s.cancelFunc = nil
	return cancel
}

// RunChat starts the interactive chat session for the named agent.
func RunChat(args *Args) error {
	settings := config.LoadSettings()

	var usageLog *usage.Log
	if dir, err := config.SettingsDir(); err == nil {
		if usageLog, err = usage.Open(filepath.Join(dir, "usage.db")); err != nil {
			fmt.Fprintf(os.Stderr, "%s could not open usage log: %v\n", WarningStyle.Render("Warning:"), err)
		}
	}
	defer usageLog.Close()

	a, err := agent.New(args.AgentID, agent.Options{
		Model:       args.Model,
		Temperature: args.Temperature,
		NoStream:    args.NoStream,
		Settings:    settings,
		Usage:       usageLog,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	session := &ChatSession{
		Agent:     a,
		InputCLI:  NewChatCLI(),
		StartTime: time.Now(),
	}
	defer session.InputCLI.Close()

	// Pick up config edits made while the session runs
	watcher, err := config.WatchFile(a.ConfigPath(), 500*time.Millisecond, func() {
		if err := a.ReloadConfig(); err != nil {
			logger := a.Logger()
			logger.Warn().Err(err).Msg("config reload failed")
		}
	})
	if err == nil {
		defer watcher.Close()
	}

	// First Ctrl+C cancels the in-flight request instead of killing the
	// process; liner handles Ctrl+C at the prompt itself.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if cancel := session.takeCancel(); cancel != nil {
				cancel()
				fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	fmt.Println()
	fmt.Println(SuccessStyle.Render("Starting interactive chat with " + a.ModelName()))
	fmt.Println("Agent: " + SectionStyle.Render(a.ID))
	fmt.Println(SuccessStyle.Render("Type '/help' for commands, '/quit' to exit"))
	fmt.Println()

	for {
		input, err := session.InputCLI.ReadInput(PromptStyle.Render("You: "))
		if err != nil {
			if err == liner.ErrPromptAborted {
				fmt.Println(WarningStyle.Render("Use '/quit' to exit properly"))
				continue
			}
			// EOF exits gracefully
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := session.handleSlashCommand(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if quit {
				fmt.Println(SuccessStyle.Render("Goodbye!"))
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			fmt.Println(SuccessStyle.Render("Goodbye!"))
			return nil
		}

		if err := session.processMessage(input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage sends the input and displays the reply, streaming chunks
// as they arrive or rendering the buffered reply as markdown.
func (s *ChatSession) processMessage(input string) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.setCancel(cancel)
	defer func() {
		s.setCancel(nil)
		cancel()
	}()

	fmt.Printf("\n%s ", AssistantStyle.Render("Assistant:"))

	if s.Agent.Config.Stream {
		_, err := s.Agent.SendMessage(ctx, input, func(text string) {
			fmt.Print(text)
		})
		fmt.Println()
		fmt.Println()
		return err
	}

	reply, err := s.Agent.SendMessage(ctx, input, nil)
	if err != nil {
		fmt.Println()
		return err
	}
	fmt.Println()
	fmt.Print(renderMarkdown(reply))
	fmt.Println()
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand executes an interactive command. Returns true when
// the session should end.
func (s *ChatSession) handleSlashCommand(input string) (bool, error) {
	parts := strings.Fields(input[1:])
	if len(parts) == 0 {
		return false, nil
	}
	command := strings.ToLower(parts[0])

	switch command {
	case "help":
		s.showHelp()
	case "history":
		return false, s.showHistory(parts[1:])
	case "search":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /search <term>")
		}
		s.showSearch(strings.Join(parts[1:], " "))
	case "stats":
		s.showStats()
	case "config":
		s.showConfig()
	case "export":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /export <json|txt|md|html>")
		}
		path, err := s.Agent.Export(strings.ToLower(parts[1]))
		if err != nil {
			return false, err
		}
		fmt.Println(SuccessStyle.Render("Exported to: " + path))
	case "clear":
		return false, s.clearHistory()
	case "files":
		s.showFiles()
	case "info":
		return false, RunInfo(s.Agent.ID)
	case "quit", "exit", "q":
		return true, nil
	default:
		fmt.Println(ErrorStyle.Render("Unknown command: " + command))
		fmt.Println(WarningStyle.Render("Type '/help' for available commands"))
	}
	return false, nil
}

func (s *ChatSession) showHelp() {
	fmt.Println()
	fmt.Println(SectionStyle.Render("Available Commands:"))
	fmt.Println("/help - Show this help message")
	fmt.Println("/history [n] - Show last n messages (default 5)")
	fmt.Println("/search <term> - Search conversation history")
	fmt.Println("/stats - Show conversation statistics")
	fmt.Println("/config - Show current configuration")
	fmt.Println("/export <json|txt|md|html> - Export conversation")
	fmt.Println("/clear - Clear conversation history")
	fmt.Println("/files - List available files for inclusion")
	fmt.Println("/info - Show agent information")
	fmt.Println("/quit - Exit chat")
	fmt.Println()
	fmt.Println(DimStyle.Render("File Inclusion: Use {filename} to include file content"))
	fmt.Println(DimStyle.Render("Supported: Programming files (.py, .js, etc.), configs, docs"))
	fmt.Println()
}

func (s *ChatSession) showHistory(args []string) error {
	limit := 5
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid number: %s", args[0])
		}
		limit = n
	}

	recent := s.Agent.History.Tail(limit)
	if len(recent) == 0 {
		fmt.Println(WarningStyle.Render("No messages in history"))
		return nil
	}

	fmt.Println()
	fmt.Println(SectionStyle.Render(fmt.Sprintf("Last %d messages:", len(recent))))
	for _, msg := range recent {
		s.printMessageLine(msg.Timestamp, msg.Role, util.PreviewRunes(msg.Content, 100))
	}
	fmt.Println()
	return nil
}

func (s *ChatSession) showSearch(term string) {
	results := s.Agent.Search(term, 10)
	if len(results) == 0 {
		fmt.Println(WarningStyle.Render(fmt.Sprintf("No matches found for '%s'", term)))
		return
	}

	fmt.Println()
	fmt.Println(SectionStyle.Render(fmt.Sprintf("Found %d matches for '%s':", len(results), term)))
	for _, result := range results {
		s.printMessageLine(result.Message.Timestamp, result.Message.Role, result.Preview)
	}
	fmt.Println()
}

func (s *ChatSession) printMessageLine(ts time.Time, role model.Role, text string) {
	style := AssistantStyle
	if role == model.RoleUser {
		style = PromptStyle
	}
	fmt.Printf("%s %s: %s\n",
		DimStyle.Render("["+ts.Format("15:04:05")+"]"),
		style.Render(string(role)),
		text)
}

func (s *ChatSession) showStats() {
	stats := s.Agent.Statistics()

	fmt.Println()
	fmt.Println(SectionStyle.Render("Conversation Statistics:"))
	fmt.Printf("Model: %s (%s)\n", s.Agent.Config.Model, s.Agent.ModelName())
	fmt.Printf("Total Messages: %d\n", stats.TotalMessages)
	fmt.Printf("User Messages: %d\n", stats.UserMessages)
	fmt.Printf("Assistant Messages: %d\n", stats.AssistantMessages)
	fmt.Printf("Total Characters: %d\n", stats.TotalCharacters)
	fmt.Printf("Average Message Length: %d\n", stats.AverageMessageLength)
	if stats.FirstMessage != "" {
		fmt.Printf("First Message: %s\n", stats.FirstMessage)
		fmt.Printf("Last Message: %s\n", stats.LastMessage)
		fmt.Printf("Duration: %s\n", stats.ConversationDuration)
	}
	if summary, err := s.Agent.UsageSummary(); err == nil && summary.Requests > 0 {
		fmt.Printf("API Requests: %d (%d failed, %s total)\n",
			summary.Requests, summary.Failures, summary.TotalTime.Round(time.Second))
	}
	fmt.Println()
}

func (s *ChatSession) showConfig() {
	cfg := s.Agent.Config

	fmt.Println()
	fmt.Println(SectionStyle.Render("Current Configuration:"))
	fmt.Printf("model: %s (%s)\n", cfg.Model, s.Agent.ModelName())
	fmt.Printf("temperature: %g\n", cfg.Temperature)
	fmt.Printf("max_tokens: %d\n", cfg.MaxTokens)
	fmt.Printf("max_history_size: %d\n", cfg.MaxHistorySize)
	fmt.Printf("stream: %t\n", cfg.Stream)
	fmt.Printf("system_prompt: %s\n", cfg.SystemPrompt)
	fmt.Printf("top_p: %g\n", cfg.TopP)
	fmt.Printf("frequency_penalty: %g\n", cfg.FrequencyPenalty)
	fmt.Printf("presence_penalty: %g\n", cfg.PresencePenalty)
	fmt.Println()
}

func (s *ChatSession) clearHistory() error {
	confirm, err := s.InputCLI.ReadInput(WarningStyle.Render("Clear conversation history? (y/N): "))
	if err != nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(confirm)) {
	case "y", "yes":
		if err := s.Agent.ClearHistory(); err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("Conversation history cleared"))
	}
	return nil
}

func (s *ChatSession) showFiles() {
	files := s.Agent.ListFiles()
	if len(files) == 0 {
		fmt.Println(WarningStyle.Render("No supported files found for inclusion"))
		return
	}

	fmt.Println()
	fmt.Println(SectionStyle.Render("Available Files for Inclusion:"))
	shown := files
	if len(shown) > 20 {
		shown = shown[:20]
	}
	for _, file := range shown {
		fmt.Println(file)
	}
	if len(files) > 20 {
		fmt.Println(WarningStyle.Render(fmt.Sprintf("... and %d more files", len(files)-20)))
	}
	fmt.Println(DimStyle.Render("Use {filename} in your message to include file content"))
	fmt.Println()
}
