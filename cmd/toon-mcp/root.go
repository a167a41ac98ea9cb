package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/toon-mcp/internal/core"
	"github.com/copyleftdev/toon-mcp/internal/httpapi"
	"github.com/copyleftdev/toon-mcp/internal/mcp"
	"github.com/copyleftdev/toon-mcp/internal/tools"
)

const serverName = "toon-mcp"

var (
	flagMode    string
	flagHost    string
	flagPort    int
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   serverName,
	Short: "TOON serialization server",
	Long: `Serves the TOON (Token-Oriented Object Notation) operations over the
MCP tool-call protocol (stdio) or a REST API (HTTP). Both modes expose the
same encode, decode, validate and stats semantics.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", envBool("TOON_VERBOSE"), "enable debug logging (env TOON_VERBOSE)")
	rootCmd.Flags().StringVarP(&flagMode, "mode", "m", envOr("TOON_MODE", "mcp"), "server mode: mcp (stdio) or http (env TOON_MODE)")
	rootCmd.Flags().StringVar(&flagHost, "host", envOr("TOON_HOST", "0.0.0.0"), "bind address for http mode (env TOON_HOST)")
	rootCmd.Flags().IntVarP(&flagPort, "port", "p", envInt("TOON_PORT", 8080), "port for http mode (env TOON_PORT)")

	rootCmd.AddCommand(encodeCmd, decodeCmd, statsCmd, versionCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// newLogger logs to stderr; in mcp mode stdout belongs to the protocol.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newMCPServer(logger *slog.Logger) *mcp.Server {
	s := mcp.NewServer(serverName, core.Version, logger)
	tools.Register(s)
	return s
}

func runServer(ctx context.Context) error {
	logger := newLogger()
	mcpServer := newMCPServer(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch flagMode {
	case "mcp":
		logger.Info("starting MCP server on stdio", "version", core.Version)
		return mcpServer.ServeStdio(ctx, os.Stdin, os.Stdout)
	case "http":
		return runHTTP(ctx, logger, mcpServer)
	default:
		return fmt.Errorf("unknown mode %q: want mcp or http", flagMode)
	}
}

func runHTTP(ctx context.Context, logger *slog.Logger, mcpServer *mcp.Server) error {
	addr := net.JoinHostPort(flagHost, strconv.Itoa(flagPort))
	srv := &http.Server{
		Addr:    addr,
		Handler: httpapi.New(logger, mcpServer).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", addr, "version", core.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
