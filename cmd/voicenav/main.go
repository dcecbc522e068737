package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"voicenav/internal/config"
	"voicenav/internal/intent"
	"voicenav/internal/logging"
	"voicenav/internal/nlp"
	"voicenav/internal/session"
)

var (
	// Global flags
	verbose   bool
	workspace string
	timeout   time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "voicenav",
	Short: "voicenav - voice-controlled web page navigation",
	Long: `voicenav turns recognized speech into page actions.

Utterances are parsed against synonym tables (optionally enriched by an
external linguistic analyzer), gated on confidence, and dispatched to
the browser over the DevTools protocol. Activation is remembered per
site, so voice control follows you across a domain's pages.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if workspace == "" {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("resolve workspace: %w", err)
			}
			workspace = wd
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("file logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// parseCmd parses one utterance and prints the command
var parseCmd = &cobra.Command{
	Use:   "parse [utterance]",
	Short: "Parse an utterance and print the structured command",
	Long: `Runs the intent parser on an utterance and prints the resulting
command as JSON. Uses the linguistic analyzer when one is configured.

Example:
  voicenav parse "show me all the buttons"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}

	parser, err := buildParser(cfg)
	if err != nil {
		return err
	}

	result := parser.ParseContext(ctx, strings.Join(args, " "))
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// buildParser assembles the parser from config: default vocabulary,
// optional overlay, optional analyzer.
func buildParser(cfg *config.Config) (*intent.Parser, error) {
	vocab := intent.DefaultVocabulary()
	if path := cfg.Parser.VocabularyPath; path != "" {
		merged, err := vocab.LoadOverlay(path)
		if err != nil {
			logger.Warn("vocabulary overlay not loaded", zap.String("path", path), zap.Error(err))
		} else {
			vocab = merged
		}
	}

	if client := nlp.NewClient(cfg.NLP); client != nil {
		return intent.NewParser(vocab, client), nil
	}
	return intent.NewParser(vocab, nil), nil
}

// scopesCmd manages per-site activation
var scopesCmd = &cobra.Command{
	Use:   "scopes",
	Short: "Manage per-site voice control activation",
}

var scopesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sites with voice control enabled",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, store *session.Store) error {
			scopes, err := store.ActiveScopes(ctx)
			if err != nil {
				return err
			}
			if len(scopes) == 0 {
				fmt.Println("No active scopes.")
				return nil
			}
			for _, s := range scopes {
				fmt.Println(s)
			}
			return nil
		})
	},
}

var scopesOnCmd = &cobra.Command{
	Use:   "on [url]",
	Short: "Enable voice control for a site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setScope(cmd, args[0], true)
	},
}

// toggleCmd is the CLI twin of the keyboard shortcut: flip activation
// for a site.
var toggleCmd = &cobra.Command{
	Use:   "toggle [url]",
	Short: "Flip voice control activation for a site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := session.ScopeForURL(args[0])
		if err != nil {
			scope, err = session.ScopeForURL("https://" + args[0])
			if err != nil {
				return err
			}
		}
		return withStore(cmd, func(ctx context.Context, store *session.Store) error {
			active, err := store.IsActive(ctx, scope)
			if err != nil {
				return err
			}
			if err := store.SetActive(ctx, scope, !active); err != nil {
				return err
			}
			if active {
				fmt.Printf("Voice control disabled for %s\n", scope)
			} else {
				fmt.Printf("Voice control enabled for %s\n", scope)
			}
			return nil
		})
	},
}

var scopesOffCmd = &cobra.Command{
	Use:   "off [url]",
	Short: "Disable voice control for a site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setScope(cmd, args[0], false)
	},
}

func setScope(cmd *cobra.Command, rawURL string, active bool) error {
	scope, err := session.ScopeForURL(rawURL)
	if err != nil {
		// Allow a bare domain as well as a full URL.
		scope, err = session.ScopeForURL("https://" + rawURL)
		if err != nil {
			return err
		}
	}
	return withStore(cmd, func(ctx context.Context, store *session.Store) error {
		if err := store.SetActive(ctx, scope, active); err != nil {
			return err
		}
		state := "disabled"
		if active {
			state = "enabled"
		}
		fmt.Printf("Voice control %s for %s\n", state, scope)
		return nil
	})
}

func withStore(cmd *cobra.Command, fn func(context.Context, *session.Store) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	store, err := session.Open(sessionDBPath(cfg))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func sessionDBPath(cfg *config.Config) string {
	if cfg.Session.DBPath != "" {
		return cfg.Session.DBPath
	}
	return workspace + "/.voicenav/session.db"
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	scopesCmd.AddCommand(scopesListCmd)
	scopesCmd.AddCommand(scopesOnCmd)
	scopesCmd.AddCommand(scopesOffCmd)

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(scopesCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
