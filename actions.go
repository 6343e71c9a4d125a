package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"social_media_analyzer/export"
	"social_media_analyzer/failure"
	"social_media_analyzer/pipeline"
)

// fileOutcome is the result of analyzing one command-line file.
type fileOutcome struct {
	File   string           `json:"file"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  *outcomeError    `json:"error,omitempty"`
}

type outcomeError struct {
	Kind    failure.Kind `json:"kind,omitempty"`
	Message string       `json:"message"`
}

func analyzeAction(c *cli.Context) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return cli.Exit("analyze: at least one FILE is required", 2)
	}
	a, err := setup(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A batch can afford to wait for the PDF library before starting.
	if err := a.pdf.Init(ctx); err != nil {
		a.logger.Warn("pdf backend unavailable", "backend", a.pdf.BackendName(), "err", err)
	}

	outcomes := make([]fileOutcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for i, path := range files {
		g.Go(func() error {
			outcomes[i] = a.analyzeFile(gctx, path)
			return nil
		})
	}
	_ = g.Wait()

	if dir := c.String("out"); dir != "" {
		if err := writeOutputs(dir, outcomes, c.Bool("html")); err != nil {
			return err
		}
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcomes); err != nil {
			return err
		}
	} else {
		printOutcomes(c.App.Writer, outcomes)
	}

	failed := 0
	for _, o := range outcomes {
		if o.Error != nil {
			failed++
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d documents failed", failed, len(outcomes)), 1)
	}
	return nil
}

func (a *app) analyzeFile(ctx context.Context, path string) fileOutcome {
	out := fileOutcome{File: path}
	doc, err := a.loader.LoadFile(ctx, path)
	if err == nil {
		var orch *pipeline.Orchestrator
		orch, err = pipeline.New(a.pipelineConfig())
		if err == nil {
			var res pipeline.Result
			res, err = orch.Run(ctx, doc)
			if err == nil {
				out.Result = &res
			}
		}
	}
	if err != nil {
		out.Error = &outcomeError{Kind: failure.KindOf(err), Message: err.Error()}
	}
	return out
}

func writeOutputs(dir string, outcomes []fileOutcome, withHTML bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, o := range outcomes {
		if o.Result == nil {
			continue
		}
		data, err := export.JSON(o.Result.Suggestions)
		if err != nil {
			return err
		}
		name := export.DownloadName(o.Result.Document)
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		if !withHTML {
			continue
		}
		page, err := export.HTML(*o.Result)
		if err != nil {
			return err
		}
		htmlName := strings.TrimSuffix(name, ".json") + ".html"
		if err := os.WriteFile(filepath.Join(dir, htmlName), page, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", htmlName, err)
		}
	}
	return nil
}

func printOutcomes(w io.Writer, outcomes []fileOutcome) {
	for i, o := range outcomes {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s ==\n", o.File)
		if o.Error != nil {
			fmt.Fprintf(w, "error (%s): %s\n", o.Error.Kind, o.Error.Message)
			continue
		}
		if len(o.Result.Suggestions) == 0 {
			fmt.Fprintln(w, "no suggestions returned")
			continue
		}
		for n, tip := range o.Result.Suggestions {
			platform := tip.Platform
			if platform == "" {
				platform = "General"
			}
			fmt.Fprintf(w, "%d. %s [%s]\n   %s\n", n+1, tip.Title, platform, tip.Body)
		}
	}
}

func serveAction(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Requests for PDFs fail with DependencyNotReady until this finishes.
	a.pdf.Start(ctx)
	go func() {
		<-a.pdf.Done()
		if err := a.pdf.Err(); err != nil {
			a.logger.Error("pdf backend failed to initialize", "backend", a.pdf.BackendName(), "err", err)
			return
		}
		a.logger.Info("pdf backend ready", "backend", a.pdf.BackendName())
	}()

	srv, err := a.server()
	if err != nil {
		return err
	}
	listen := a.cfg.ServerAddr
	if addr := c.String("addr"); addr != "" {
		listen = addr
	}
	httpSrv := &http.Server{
		Addr:              listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting web server", "addr", listen)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func mcpAction(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.pdf.Start(ctx)
	srv, err := a.server()
	if err != nil {
		return err
	}
	transport, restore := stdioTransport()
	defer restore()
	a.logger.Info("serving MCP on stdio")
	return srv.MCPServer(version).Run(ctx, transport)
}

// stdioTransport serves MCP on stdin and the real stdout, and points
// os.Stdout at stderr while it is in use: the ledongthuc PDF parser prints
// diagnostics with fmt.Printf, which would corrupt the JSON-RPC stream.
func stdioTransport() (*mcp.IOTransport, func()) {
	out := os.Stdout
	os.Stdout = os.Stderr
	return &mcp.IOTransport{Reader: os.Stdin, Writer: out}, func() { os.Stdout = out }
}
