package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tinkerhq/tinker/agent"
	"github.com/tinkerhq/tinker/config"
	"github.com/tinkerhq/tinker/llm"
	"github.com/tinkerhq/tinker/mcptool"
	"github.com/tinkerhq/tinker/session"
)

type rootFlags struct {
	configPath string
	provider   string
	model      string
	maxSteps   int
	yolo       bool
	noStream   bool
	resume     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "tinker",
		Short:         "Terminal AI coding assistant",
		Long:          "tinker runs an agentic chat loop: the model reads files, edits code, and runs commands in the current directory, asking for approval before each tool call.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), flags)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
	cmd.Flags().StringVarP(&flags.provider, "provider", "p", "", "provider id (see 'tinker models')")
	cmd.Flags().StringVarP(&flags.model, "model", "m", "", "model id")
	cmd.Flags().IntVar(&flags.maxSteps, "max-steps", 0, "step budget per message (0 = config default)")
	cmd.Flags().BoolVar(&flags.yolo, "yolo", false, "auto-approve all tool calls")
	cmd.Flags().BoolVar(&flags.noStream, "no-stream", false, "disable streaming responses")
	cmd.Flags().StringVar(&flags.resume, "resume", "", "resume a saved session by name")

	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newSessionsCmd())
	return cmd
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runChat(ctx context.Context, flags *rootFlags) error {
	logger := newLogger(flags.verbose)

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.provider != "" {
		cfg.Provider = flags.provider
	}
	if flags.model != "" {
		cfg.Model = flags.model
	}
	if flags.maxSteps > 0 {
		cfg.MaxSteps = flags.maxSteps
	}
	if flags.yolo {
		cfg.AutoApprove = true
	}
	if flags.noStream {
		cfg.Streaming = false
	}

	provider := llm.GetProvider(cfg.Provider)
	if provider == nil {
		return fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	client, err := llm.NewClient(*provider, llm.WithLogger(logger))
	if err != nil {
		return err
	}

	registry := agent.NewToolRegistry()
	agent.RegisterCoreTools(registry, cfg.Tools.DefaultTimeoutMs, cfg.Tools.MaxTimeoutMs)

	var mcpServers []*mcptool.Server
	for name, server := range cfg.MCP {
		srv, err := mcptool.Connect(ctx, name, server.Command, server.Args, server.Env, logger)
		if err != nil {
			logger.Warn("mcp server unavailable", "server", name, "error", err)
			continue
		}
		count, err := srv.RegisterTools(ctx, registry)
		if err != nil {
			logger.Warn("mcp tool discovery failed", "server", name, "error", err)
			srv.Close()
			continue
		}
		fmt.Printf("Loaded %d tool(s) from MCP server %s\n", count, name)
		mcpServers = append(mcpServers, srv)
	}
	defer func() {
		for _, srv := range mcpServers {
			srv.Close()
		}
	}()

	env := agent.NewLocalEnv("")
	stdin := bufio.NewReader(os.Stdin)

	callbacks := agent.Callbacks{
		OnToken: func(text string) {
			fmt.Print(text)
		},
		OnToolCall: func(name string, args map[string]interface{}) bool {
			fmt.Printf("\n[tool] %s %s\n", name, formatArgs(args))
			if cfg.AutoApprove {
				return true
			}
			return promptApproval(stdin)
		},
		OnToolResult: func(name, result string) {
			fmt.Printf("[%s] %s\n", name, firstLine(result))
		},
		OnEnd: func() {
			fmt.Println()
		},
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "\nerror: %v\n", err)
		},
	}

	loop, err := agent.New(client, registry, env, agent.Config{
		Provider:         cfg.Provider,
		Model:            cfg.Model,
		MaxSteps:         cfg.MaxSteps,
		AutoApprove:      cfg.AutoApprove,
		Streaming:        cfg.Streaming,
		UserInstructions: cfg.UserInstructions,
		ToolCharLimits:   cfg.Tools.CharLimits,
		ToolLineLimits:   cfg.Tools.LineLimits,
	}, callbacks, logger)
	if err != nil {
		return err
	}
	defer loop.Close()

	sessionDir, err := session.DefaultDir()
	if err != nil {
		return err
	}
	store := session.NewStore(sessionDir)

	if flags.resume != "" {
		if err := loadSession(store, loop, flags.resume, logger); err != nil {
			return err
		}
		fmt.Printf("Resumed session %q (%d messages)\n", flags.resume, len(loop.History()))
	}

	fmt.Printf("tinker (%s / %s). Type /help for commands, /exit to quit.\n", loop.ProviderID(), loop.Model())
	return repl(ctx, stdin, loop, store, logger)
}

func repl(ctx context.Context, stdin *bufio.Reader, loop *agent.Loop, store *session.Store, logger *slog.Logger) error {
	for {
		fmt.Print("> ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := handleCommand(line, loop, store)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			if done {
				return nil
			}
			continue
		}

		if err := loop.Chat(ctx, line); err != nil {
			// Already surfaced via OnError; keep the REPL alive.
			logger.Debug("chat turn aborted", "error", err)
		}
	}
}

func handleCommand(line string, loop *agent.Loop, store *session.Store) (done bool, err error) {
	fields := strings.Fields(line)
	name := ""
	if len(fields) > 1 {
		name = fields[1]
	}

	switch fields[0] {
	case "/exit", "/quit":
		return true, nil
	case "/help":
		fmt.Println(`/save [name]   save the session (default name "last")
/load [name]   load a saved session
/sessions      list saved sessions
/clear         clear conversation history
/stats         show usage statistics
/exit          quit`)
	case "/save":
		err = store.Save(name, session.Snapshot{
			Cwd:      mustGetwd(),
			Provider: loop.ProviderID(),
			Model:    loop.Model(),
			History:  loop.History(),
			Stats:    loop.Stats(),
		})
		if err == nil {
			if name == "" {
				name = session.DefaultName
			}
			fmt.Printf("Saved session %q\n", name)
		}
	case "/load":
		err = loadSession(store, loop, name, slog.Default())
		if err == nil {
			fmt.Printf("Loaded session (%d messages)\n", len(loop.History()))
		}
	case "/sessions":
		err = printSessions(store)
	case "/clear":
		loop.Clear()
		fmt.Println("History cleared.")
	case "/stats":
		stats := loop.Stats()
		fmt.Printf("requests=%d toolCalls=%d promptTokens=%d completionTokens=%d totalTokens=%d since=%s\n",
			stats.Requests, stats.ToolCalls, stats.PromptTokens, stats.CompletionTokens,
			stats.TotalTokens, stats.StartTime.Format("2006-01-02 15:04:05"))
	default:
		fmt.Printf("Unknown command %s (try /help)\n", fields[0])
	}
	return false, err
}

func loadSession(store *session.Store, loop *agent.Loop, name string, logger *slog.Logger) error {
	file, err := store.Load(name)
	if err != nil {
		return err
	}
	if err := loop.Restore(file.Provider, file.Model, file.History, file.Stats); err != nil {
		return err
	}
	// The provider may have changed; rebuild the transport to match.
	provider := llm.GetProvider(file.Provider)
	client, err := llm.NewClient(*provider, llm.WithLogger(logger))
	if err != nil {
		return err
	}
	loop.SetTransport(client)
	return nil
}

func printSessions(store *session.Store) error {
	entries, err := store.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No saved sessions.")
		return nil
	}
	for _, e := range entries {
		summary := e.Summary
		if summary == "" {
			summary = "(unreadable)"
		}
		fmt.Printf("%-16s %s  %s/%s  %s\n", e.Name, e.ModTime.Format("2006-01-02 15:04"), e.Provider, e.Model, summary)
	}
	return nil
}

func promptApproval(stdin *bufio.Reader) bool {
	for {
		fmt.Print("Approve? [y/N] ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		}
	}
}

func formatArgs(args map[string]interface{}) string {
	if len(args) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, args[k])
	}
	return strings.Join(parts, " ")
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx] + " ..."
	}
	return s
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}
