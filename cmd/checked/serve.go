package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/artpar/checked/config"
	"github.com/artpar/checked/core/exporter"
	"github.com/artpar/checked/core/expect"
	"github.com/artpar/checked/core/formatter"
	"github.com/artpar/checked/core/schema"
	"github.com/artpar/checked/core/validation"
)

var (
	serveSigs []string
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Check a stream of JSON-lines calls from stdin",
	Long: `Read one JSON call per line from stdin and write one JSON result per line
to stdout, until stdin closes or the process is interrupted.

Request:
  {"function": "scale", "args": [["1", 2]], "kwargs": {"factor": 3}, "coerce": true}

Response:
  {"function": "scale", "ok": true, "call": {...}}
  {"function": "scale", "ok": false, "error": {"kind": "type_mismatch", ...}}

"coerce" is optional and overrides the configured checking.coerce for that
call only.

The checking section of the config file is reloaded on change or SIGHUP.
With metrics.enabled, outcome counters are served on metrics.addr.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringSliceVar(&serveSigs, "sig", nil, "signature file or directory (default: configured signatures)")
	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "reload the config file on change")
}

// serveRequest is one line of input.
type serveRequest struct {
	Function string         `json:"function"`
	Args     []any          `json:"args"`
	Kwargs   map[string]any `json:"kwargs"`
	Coerce   *bool          `json:"coerce,omitempty"`
}

// serveResponse is one line of output.
type serveResponse struct {
	Function string          `json:"function,omitempty"`
	OK       bool            `json:"ok"`
	Call     *formatter.Call `json:"call,omitempty"`
	Error    map[string]any  `json:"error,omitempty"`
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := expect.NewRegistry()
	cat, err := loadCatalog(ctx, reg, signaturePaths(serveSigs))
	if err != nil {
		return err
	}
	logger.Info().Int("functions", cat.Len()).Msg("signatures loaded")

	if _, statErr := os.Stat(cfgFile); statErr == nil && hotReload {
		holder, err := config.NewHolder(cfgFile, nil, logger)
		if err != nil {
			return err
		}
		defer holder.Stop()

		holder.OnChange(func(c *config.Config) {
			if level, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err == nil {
				zerolog.SetGlobalLevel(level)
			}
		})
		if err := holder.WatchFile(); err != nil {
			logger.Warn().Err(err).Msg("config file watch disabled")
		}
		holder.WatchSignals()
	}

	exporters := exporter.NewRegistry()
	exporters.Register(exporter.NewLogExporter(logger))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		prom := exporter.NewPrometheusExporter(exporter.PrometheusConfig{
			Prefix:         cfg.Metrics.Prefix,
			ProcessMetrics: true,
		})
		exporters.Register(prom)

		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, prom.Handler())
		server := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logger.Info().Str("addr", server.Addr).Str("path", cfg.Metrics.Path).Msg("metrics server starting")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	v := validation.New(
		validation.WithLogger(logger),
		validation.WithObserver(exporters),
	)

	// The read loop blocks in Scan, so it runs outside the group and is
	// abandoned on interrupt.
	done := make(chan error, 1)
	go func() {
		done <- serveLines(cmd.InOrStdin(), cmd.OutOrStdout(), cat, v)
	}()

	var loopErr error
	select {
	case loopErr = <-done:
	case <-gctx.Done():
		logger.Info().Msg("shutting down")
	}
	cancel()

	if err := g.Wait(); err != nil {
		return err
	}
	return loopErr
}

// serveLines answers each request line until r is exhausted. Malformed
// lines get an error response; only read and write failures stop the loop.
func serveLines(r io.Reader, w io.Writer, cat *schema.Catalog, v *validation.Validator) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := enc.Encode(handleLine([]byte(line), cat, v)); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

func handleLine(line []byte, cat *schema.Catalog, v *validation.Validator) serveResponse {
	var req serveRequest
	if err := decodeJSON(line, &req); err != nil {
		return serveResponse{Error: map[string]any{
			"kind":  "request",
			"error": fmt.Sprintf("invalid request: %v", err),
		}}
	}

	resp := serveResponse{Function: req.Function}
	fn, ok := cat.Lookup(req.Function)
	if !ok {
		resp.Error = map[string]any{
			"kind":  "request",
			"error": fmt.Sprintf("function %q not declared", req.Function),
		}
		return resp
	}

	var opts []validation.CallOption
	if req.Coerce != nil {
		opts = append(opts, validation.WithCoerce(*req.Coerce))
	}

	bound, err := v.Validate(fn.Signature, normalizeSlice(req.Args), normalizeMap(req.Kwargs), opts...)
	if err != nil {
		resp.Error = formatter.ErrorFields(err)
		return resp
	}

	call := formatter.FromBound(fn.Signature, bound)
	resp.OK = true
	resp.Call = &call
	return resp
}
