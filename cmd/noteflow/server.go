package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/noteflow/noteflow/internal/api"
	"github.com/noteflow/noteflow/internal/config"
	"github.com/noteflow/noteflow/internal/llm"
	"github.com/noteflow/noteflow/internal/note"
	"github.com/noteflow/noteflow/internal/pipeline"
	"github.com/noteflow/noteflow/internal/storage"
	"github.com/noteflow/noteflow/internal/stt"
	"github.com/noteflow/noteflow/internal/vision"
	"github.com/noteflow/noteflow/internal/youtube"
)

// drainTimeout bounds how long shutdown waits for background enhancement.
const drainTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the noteflow API server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server health and note counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdio")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "noteflow version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.Log.Level)})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	deps := pipeline.Deps{
		Store: store,
		Model: llm.NewClientWithBaseURL(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL),
	}
	if cfg.ElevenLabs.APIKey != "" {
		deps.STT = stt.NewClient(cfg.ElevenLabs.APIKey, cfg.ElevenLabs.BaseURL, cfg.ElevenLabs.Model)
	} else {
		slog.Warn("no ElevenLabs API key, transcription disabled")
	}
	if cfg.Gemini.APIKey != "" {
		deps.Vision = vision.NewClient(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.Model)
	} else {
		slog.Warn("no Gemini API key, OCR disabled")
	}
	if cfg.RapidAPI.Key != "" {
		deps.Videos = youtube.NewClient(cfg.RapidAPI.Key)
	} else {
		slog.Warn("no RapidAPI key, YouTube import disabled")
	}
	orch := pipeline.New(deps, pipeline.Options{
		InsightCount: cfg.Insights.Count,
		Reasoning:    cfg.OpenAI.ReasoningEffort,
	})

	if cfg.API.Token == "" {
		slog.Warn("no API token configured, bearer auth disabled")
	}
	handler := api.NewAppHandler(api.AppDeps{
		Pipeline: orch,
		Token:    cfg.API.Token,
		Version:  version,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Notes: store, Pipeline: orch, Version: version})
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "noteflow listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdownErr := srv.Shutdown(shutdownCtx)

	drained := make(chan struct{})
	go func() {
		orch.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(drainTimeout):
		slog.Warn("background enhancement still running at exit", "timeout", drainTimeout)
	}
	return shutdownErr
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Model", "%s (reasoning %s)", cfg.OpenAI.Model, cfg.OpenAI.ReasoningEffort)
	printStatus("Transcription", "%s", providerState(cfg.ElevenLabs.APIKey, cfg.ElevenLabs.Model))
	printStatus("OCR", "%s", providerState(cfg.Gemini.APIKey, cfg.Gemini.Model))
	printStatus("YouTube", "%s", providerState(cfg.RapidAPI.Key, "rapidapi"))

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		printWarning("could not open storage: %v", err)
		return nil
	}
	defer store.Close()
	counts, err := store.CountByStatus()
	if err != nil {
		printWarning("could not count notes: %v", err)
		return nil
	}
	for _, s := range []note.Status{note.StatusProcessing, note.StatusReady, note.StatusError} {
		printStatus("Notes "+string(s), "%d", counts[s])
	}
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func providerState(key, model string) string {
	if key == "" {
		return "disabled (no API key)"
	}
	return "enabled, " + model
}
