package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"voicenav/internal/browser"
	"voicenav/internal/config"
	"voicenav/internal/dispatch"
	"voicenav/internal/followup"
	"voicenav/internal/inject"
	"voicenav/internal/intent"
	"voicenav/internal/listener"
	"voicenav/internal/metrics"
	"voicenav/internal/pipeline"
	"voicenav/internal/session"
)

var (
	listenAddr string
	stdinMode  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the voice navigation service",
	Long: `Connects to the browser, watches page navigations, and processes
utterances end to end.

Utterances arrive over HTTP (POST /parse, POST /batch-parse) or, with
--stdin, from standard input, one per line. The HTTP listener also
serves /health and Prometheus /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:5033", "HTTP listen address")
	serveCmd.Flags().BoolVar(&stdinMode, "stdin", false, "Read utterances from stdin (one per line)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}

	parser, err := buildParser(cfg)
	if err != nil {
		return err
	}

	store, err := session.Open(sessionDBPath(cfg))
	if err != nil {
		return err
	}
	defer store.Close()

	manager := browser.NewManager(cfg.Injection)
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("browser: %w", err)
	}
	defer manager.Shutdown(context.Background())

	orch := inject.New(store, manager, cfg.Injection.Cooldown(), cfg.Injection.RecordTTL())

	tracker := followup.NewTracker(cfg.Parser.FollowUpExpiry())
	dispatcher := dispatch.NewDispatcher(cfg.Parser.GetAcceptThreshold(), browser.NewExecutor(manager))
	pipe := pipeline.New(parser, tracker, dispatcher)

	var sup *listener.Supervisor
	if stdinMode {
		sup = listener.NewSupervisor(stdinRecognizer{}, cfg.Listener, func(utterance string) {
			resp := pipe.HandleUtterance(ctx, utterance)
			fmt.Println(resp.Feedback)
			handleToggle(sup, resp)
		})
		sup.Start(ctx)
		defer sup.Stop()
	}

	var watcher *intent.VocabularyWatcher
	if path := cfg.Parser.VocabularyPath; path != "" {
		watcher, err = intent.NewVocabularyWatcher(parser, intent.DefaultVocabulary(), path)
		if err != nil {
			logger.Warn("vocabulary watcher unavailable", zap.Error(err))
		} else {
			_ = watcher.Start(ctx)
			defer watcher.Stop()
		}
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           newServeMux(parser, pipe, manager, orch),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", listenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return manager.Watch(gctx, orch)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// handleToggle applies listener control commands to the supervisor.
func handleToggle(sup *listener.Supervisor, resp pipeline.Response) {
	if sup == nil || resp.ToggleListening == nil {
		return
	}
	if *resp.ToggleListening {
		sup.Start(context.Background())
	} else {
		go sup.Stop()
	}
}

// pageFocuser and pageToggler are the slices of the browser manager and
// the orchestrator the HTTP surface needs.
type pageFocuser interface {
	FocusedPage(ctx context.Context) (handle, pageURL string, err error)
}

type pageToggler interface {
	KeyboardToggle(ctx context.Context, pageHandle, pageURL string) (bool, error)
}

// newServeMux builds the HTTP surface: parse endpoints for clients
// that do their own speech recognition, the activation toggle the
// keyboard shortcut binds to, plus health and metrics.
func newServeMux(parser *intent.Parser, pipe *pipeline.Pipeline, pages pageFocuser, toggler pageToggler) *http.ServeMux {
	mux := http.NewServeMux()

	// Go 1.21's ServeMux has no method patterns; enforce the method here.
	requireMethod := func(method string, h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc("/health", requireMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))

	mux.Handle("/metrics", requireMethod(http.MethodGet, metrics.Handler().ServeHTTP))

	mux.HandleFunc("/toggle", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		handle, pageURL, err := pages.FocusedPage(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		active, err := toggler.KeyboardToggle(r.Context(), handle, pageURL)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		// Flipping activation invalidates any enumeration on screen.
		pipe.HandleNavigation()
		scope, _ := session.ScopeForURL(pageURL)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"active": active, "scope": scope})
	}))

	mux.HandleFunc("/parse", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
			// Execute runs the command against the page instead of only
			// parsing it.
			Execute bool `json:"execute"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if req.Execute {
			resp := pipe.HandleUtterance(r.Context(), req.Text)
			json.NewEncoder(w).Encode(map[string]any{
				"command":  resp.Command,
				"feedback": resp.Feedback,
			})
			return
		}
		json.NewEncoder(w).Encode(parser.ParseContext(r.Context(), req.Text))
	}))

	mux.HandleFunc("/batch-parse", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Texts []string `json:"texts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		results, err := parser.ParseBatch(r.Context(), req.Texts)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))

	return mux
}

// stdinRecognizer treats stdin lines as recognized utterances. It
// stands in for a speech engine during development.
type stdinRecognizer struct{}

func (stdinRecognizer) Run(ctx context.Context, emit func(string)) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if line := scanner.Text(); line != "" {
			emit(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	// EOF: nothing more will arrive, treat as a clean end and let the
	// supervisor park until stopped.
	<-ctx.Done()
	return ctx.Err()
}
