// ABOUTME: Entry point for the taskchat conversational client
// ABOUTME: Wires the configured store and backend transport into an interactive session

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/taskchat/internal/config"
	"github.com/2389/taskchat/internal/conversation"
	"github.com/2389/taskchat/internal/store"
	"github.com/2389/taskchat/internal/transport"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _            _        _           _
| |_ __ _ ___| | _____| |__   __ _| |_
| __/ _' / __| |/ / __| '_ \ / _' | __|
| || (_| \__ \   < (__| | | | (_| | |_
 \__\__,_|___/_|\_\___|_| |_|\__,_|\__|
`

// getConfigPath returns the path to the taskchat config file.
// Priority: TASKCHAT_CONFIG env var > XDG_CONFIG_HOME/taskchat/taskchat.yaml > ~/.config/taskchat/taskchat.yaml
func getConfigPath() string {
	if envPath := os.Getenv("TASKCHAT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "taskchat.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "taskchat", "taskchat.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: taskchat <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  chat     Start an interactive session with the task assistant")
		fmt.Println("  reset    Drop the persisted conversation and start fresh next time")
		os.Exit(1)
	}

	// Handle shutdown signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "chat":
		err = runChat(ctx)
	case "reset":
		err = runReset(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the controller with its dependencies.
func setup(ctx context.Context) (*conversation.Controller, store.Store, *config.Config, error) {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	st, err := store.Open(cfg.Store, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening session store: %w", err)
	}

	scope := cfg.Session.UserScope
	if scope == "" {
		scope = os.Getenv("USER")
	}
	if scope == "" {
		scope = "default"
	}

	chat := transport.New(cfg.Backend.URL, cfg.Backend.Timeout, logger)

	yellow := color.New(color.FgYellow)
	notifier := conversation.NotifierFunc(func() {
		yellow.Println("  ✦ task list changed, refresh your task view")
	})

	ctrl := conversation.New(st, chat, notifier, scope, logger)
	return ctrl, st, cfg, nil
}

func runChat(ctx context.Context) error {
	ctrl, st, cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	defer ctrl.Close()

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	cyan.Print(banner)
	gray.Printf("    version: %s\n\n", version)
	green.Print("    ▶ ")
	fmt.Printf("Backend: %s\n", cfg.Backend.URL)
	green.Print("    ▶ ")
	fmt.Printf("Store:   %s\n", storeDescription(cfg.Store))
	fmt.Println()
	gray.Println("Type a message, /reset to start over, /quit to leave.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		green.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/reset":
			ctrl.Reset(ctx)
			gray.Println("conversation reset")
			continue
		}

		state, err := ctrl.Submit(ctx, line)
		if err != nil {
			red.Printf("error: %v\n", err)
			continue
		}

		if state.Status == conversation.StatusError {
			red.Printf("assistant unavailable: %s\n", state.Err)
			continue
		}

		if len(state.History) > 0 {
			last := state.History[len(state.History)-1]
			if last.Role == conversation.RoleAssistant {
				cyan.Print("assistant> ")
				fmt.Println(last.Content)
			}
		}
	}

	return scanner.Err()
}

func runReset(ctx context.Context) error {
	ctrl, st, _, err := setup(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	defer ctrl.Close()

	ctrl.Reset(ctx)
	fmt.Println("Conversation reset.")
	return nil
}

func storeDescription(cfg config.StoreConfig) string {
	switch cfg.Backend {
	case config.StoreBackendRedis:
		return "redis " + cfg.RedisURL
	case config.StoreBackendMemory:
		return "memory (not persisted)"
	case config.StoreBackendBolt:
		return "bolt " + cfg.Path
	default:
		return "sqlite " + cfg.Path
	}
}
