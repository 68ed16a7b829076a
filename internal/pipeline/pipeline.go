// Package pipeline drives the batch flow: list PDFs in the input directory,
// render each page, ask the model for table titles, normalize every response,
// and write one JSON and one CSV result file per PDF. Files are isolated from
// each other, so one broken PDF never takes down the batch.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rheese/tablescan/internal/calllog"
	"github.com/rheese/tablescan/internal/config"
	"github.com/rheese/tablescan/internal/errdefs"
	"github.com/rheese/tablescan/internal/home"
	"github.com/rheese/tablescan/internal/metrics"
	"github.com/rheese/tablescan/internal/normalize"
	"github.com/rheese/tablescan/internal/providers"
	"github.com/rheese/tablescan/internal/rasterize"
	"github.com/rheese/tablescan/internal/results"
	"github.com/rheese/tablescan/internal/types"
)

// Document is one opened PDF ready for page rendering.
type Document interface {
	PageCount() int
	RenderPage(ctx context.Context, page int) ([]byte, error)
}

// Renderer opens PDFs for rendering. Satisfied by rasterize.Renderer through
// the pdfRenderer adapter; tests substitute fakes.
type Renderer interface {
	Open(ctx context.Context, pdfPath string) (Document, error)
}

// pdfRenderer adapts rasterize.Renderer to the Renderer interface.
type pdfRenderer struct {
	r *rasterize.Renderer
}

func (p pdfRenderer) Open(ctx context.Context, pdfPath string) (Document, error) {
	return p.r.Open(ctx, pdfPath)
}

// Pipeline processes PDFs sequentially, one file at a time and one page at a
// time. The model client is constructed once and lives for the pipeline.
type Pipeline struct {
	cfg       *config.Config
	renderer  Renderer
	extractor providers.TitleExtractor
	writer    *results.Writer
	metrics   *metrics.Recorder
	callLog   *calllog.FileLog
	logger    *slog.Logger
}

// New validates the configuration and wires up a pipeline. homeDir may be
// nil, which disables the call log regardless of configuration.
func New(cfg *config.Config, homeDir *home.Dir, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	extractor, err := providers.New(providers.Config{
		Name:        cfg.Provider.Name,
		APIKey:      cfg.ResolveAPIKey(),
		Model:       cfg.Provider.Model,
		BaseURL:     cfg.Provider.BaseURL,
		Timeout:     cfg.Provider.Timeout(),
		MaxAttempts: cfg.Provider.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	var callLog *calllog.FileLog
	if cfg.Logging.CallLog && homeDir != nil {
		callLog = calllog.NewFileLog(homeDir.CallLogPath(), logger)
	}

	return &Pipeline{
		cfg:       cfg,
		renderer:  pdfRenderer{rasterize.New(cfg.Rasterize.DPI, cfg.Rasterize.PdftoppmPath, logger)},
		extractor: extractor,
		writer:    results.NewWriter(cfg.Pipeline.OutputDir, logger),
		metrics:   metrics.NewRecorder(),
		callLog:   callLog,
		logger:    logger,
	}, nil
}

// Metrics exposes the usage recorder, for per-model breakdowns after a run.
func (p *Pipeline) Metrics() *metrics.Recorder {
	return p.metrics
}

// RunSummary reports one batch pass over the input directory.
type RunSummary struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	Files     int           `json:"files" yaml:"files"`
	Succeeded int           `json:"succeeded" yaml:"succeeded"`
	Failed    int           `json:"failed" yaml:"failed"`
	Records   int           `json:"records" yaml:"records"`
	Usage     metrics.Usage `json:"usage" yaml:"usage"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Run performs one batch pass over the configured input directory. Per-file
// failures are counted in the summary and never abort the batch; Run itself
// fails only when the input directory cannot be listed or the context is
// canceled.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	p.metrics.Reset()

	summary := &RunSummary{RunID: uuid.New().String()}

	files, err := listPDFs(p.cfg.Pipeline.InputDir)
	if err != nil {
		return nil, err
	}
	summary.Files = len(files)

	p.logger.Info("found pdf files",
		"count", len(files),
		"dir", p.cfg.Pipeline.InputDir,
		"run_id", summary.RunID,
	)

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}

		set, _, err := p.ProcessFile(ctx, path)
		if err != nil {
			summary.Failed++
			if ctx.Err() != nil {
				break
			}
			p.logger.Error("failed to process pdf", "file", filepath.Base(path), "error", err)
			continue
		}

		summary.Succeeded++
		summary.Records += len(set)
	}

	summary.Usage = p.metrics.Summary()
	summary.Elapsed = time.Since(start)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// ProcessFile runs the full flow for one PDF. Conversion and IO problems are
// fatal for the file; inference and parse problems degrade to error records
// and processing continues with the next page.
func (p *Pipeline) ProcessFile(ctx context.Context, pdfPath string) (types.ResultSet, *results.Written, error) {
	name := filepath.Base(pdfPath)
	start := time.Now()

	doc, err := p.renderer.Open(ctx, pdfPath)
	if err != nil {
		return nil, nil, err
	}

	p.logger.Info("processing pdf", "file", name, "pages", doc.PageCount())

	set := types.ResultSet{}
	for page := 1; page <= doc.PageCount(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		// The rendered page is dropped as soon as the call returns, so
		// only one page image is held at a time.
		image, err := doc.RenderPage(ctx, page)
		if err != nil {
			return nil, nil, err
		}

		set = append(set, p.processPage(ctx, name, page, image)...)
	}

	written, err := p.writer.Write(set, pdfPath)
	if err != nil {
		return nil, nil, err
	}

	p.logger.Info("pdf processed",
		"file", name,
		"pages", doc.PageCount(),
		"records", len(set),
		"duration", time.Since(start),
	)

	return set, written, nil
}

// processPage sends one rendered page to the model and normalizes the reply.
// It never fails: a broken call collapses to a single error record.
func (p *Pipeline) processPage(ctx context.Context, pdfName string, page int, image []byte) types.ResultSet {
	res, err := p.extractor.ExtractTitles(ctx, &providers.ExtractRequest{
		Image:      image,
		PageNumber: page,
	})

	p.recordCall(pdfName, page, res, err)

	if err != nil {
		p.logger.Warn("model call failed", "file", pdfName, "page", page, "error", err)
		return types.ResultSet{normalize.ErrorRecord(page, err)}
	}

	return normalize.Normalize(res.Text, page)
}

// recordCall folds one model call into the metrics and the audit log.
func (p *Pipeline) recordCall(pdfName string, page int, res *providers.ExtractResult, callErr error) {
	m := metrics.CallMetric{
		Provider: p.extractor.Name(),
		Model:    p.extractor.Model(),
		Success:  callErr == nil,
	}
	if res != nil {
		m.PromptTokens = res.PromptTokens
		m.CompletionTokens = res.CompletionTokens
		m.TotalTokens = res.TotalTokens
		m.Duration = res.ExecutionTime
	}
	p.metrics.RecordCall(m)

	p.callLog.Append(calllog.FromResult(res, callErr, calllog.Options{
		PDF:      pdfName,
		Page:     page,
		Provider: p.extractor.Name(),
		Model:    p.extractor.Model(),
	}))
}

// listPDFs returns the PDF files directly under dir in lexical order. The
// extension match is case-insensitive so REPORT.PDF is picked up too.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindIO, err, "failed to list input directory")
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
