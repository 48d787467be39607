package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rulecore/rulecore/internal/config"
	"github.com/rulecore/rulecore/internal/mcpsurface"
	"github.com/rulecore/rulecore/internal/observability"
)

var metricsAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP tool surface",
	Long: `Serve the rule engine's eight tool-surface operations as MCP
JSON-RPC methods.

By default requests are read as newline-delimited JSON-RPC messages on
stdin, with responses written to stdout. When mcp_addr is set (config or
--mcp-addr), a TCP listener is also started; each connection carries
newline-delimited JSON-RPC messages, one response line per request line.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("mcp-addr", "", "TCP address to additionally listen on for MCP JSON-RPC (overrides mcp_addr)")
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus /metrics on (disabled if empty)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if addr, _ := cmd.Flags().GetString("mcp-addr"); addr != "" {
		cfg.MCPAddr = addr
	}

	logger := newLogger(cfg)
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	var metrics *observability.Metrics
	if metricsAddr != "" {
		metrics = observability.NewMetrics(defaultRegisterer())
	}

	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.EngineVersion)
	if err != nil {
		logger.Warn("tracing disabled: failed to initialize", "error", err)
	} else {
		defer func() { _ = shutdownTracing(context.Background()) }()
	}

	surface, err := buildToolSurface(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to build tool surface: %w", err)
	}
	dispatcher := mcpsurface.NewDispatcher(surface, logger)

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			logger.Info("metrics server listening", "addr", metricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			_ = metricsServer.Close()
		}()
	}

	if cfg.MCPAddr != "" {
		listener, err := net.Listen("tcp", cfg.MCPAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.MCPAddr, err)
		}
		go serveTCP(ctx, listener, dispatcher, logger)
		logger.Info("mcp tcp listener started", "addr", cfg.MCPAddr)
		defer listener.Close()
	}

	logger.Info("rulecore serving",
		"version", cfg.EngineVersion,
		"storage_backend", cfg.StorageBackend,
		"rules_dir", cfg.RulesDir,
		"tie_breaking", cfg.PriorityTieBreaking,
	)

	return serveStdio(ctx, dispatcher, logger)
}

// serveStdio reads newline-delimited JSON-RPC requests from stdin and
// writes newline-delimited responses to stdout, one per line, until ctx is
// canceled or stdin is closed.
func serveStdio(ctx context.Context, dispatcher *mcpsurface.Dispatcher, logger *slog.Logger) error {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(done)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	writer := bufio.NewWriter(os.Stdout)

	for scanner.Scan() {
		select {
		case <-done:
			return nil
		default:
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := dispatcher.HandleBytes(ctx, line)
		if resp == nil {
			continue
		}
		if _, err := writer.Write(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return err
		}
		if err := writer.Flush(); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("stdin read error", "error", err)
		return err
	}
	return nil
}

// serveTCP accepts connections on listener, handling one newline-delimited
// JSON-RPC request/response exchange per line per connection, until ctx is
// canceled.
func serveTCP(ctx context.Context, listener net.Listener, dispatcher *mcpsurface.Dispatcher, logger *slog.Logger) {
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("mcp tcp accept failed", "error", err)
			continue
		}
		go handleTCPConn(ctx, conn, dispatcher)
	}
}

func handleTCPConn(ctx context.Context, conn net.Conn, dispatcher *mcpsurface.Dispatcher) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := dispatcher.HandleBytes(ctx, line)
		if resp == nil {
			continue
		}
		if _, err := writer.Write(resp); err != nil {
			return
		}
		if err := writer.WriteByte('\n'); err != nil {
			return
		}
		if err := writer.Flush(); err != nil {
			return
		}
	}
}
