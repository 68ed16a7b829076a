// Package rasterize converts PDF pages into PNG images using pdftoppm
// (poppler-utils), with pdfcpu providing page counts and input validation.
package rasterize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/rheese/tablescan/internal/errdefs"
)

// DefaultDPI is the render resolution used when none is configured.
const DefaultDPI = 200

// Renderer renders PDF pages at a fixed resolution.
type Renderer struct {
	DPI          int
	PdftoppmPath string
	Logger       *slog.Logger
}

// New creates a Renderer, filling in defaults for zero values.
func New(dpi int, pdftoppmPath string, logger *slog.Logger) *Renderer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if pdftoppmPath == "" {
		pdftoppmPath = "pdftoppm"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		DPI:          dpi,
		PdftoppmPath: pdftoppmPath,
		Logger:       logger,
	}
}

// Document is an opened PDF ready for page rendering.
// Pages are rendered one at a time; the returned bytes are the only copy,
// so callers drop them as soon as the page has been consumed.
type Document struct {
	path      string
	pageCount int
	r         *Renderer
}

// Open validates the PDF and determines its page count.
// Malformed, unreadable or empty PDFs are conversion errors.
func (r *Renderer) Open(ctx context.Context, pdfPath string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindConversion, err, "failed to open PDF")
	}
	pageCount, err := api.PageCount(f, nil)
	f.Close()
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindConversion, err, "failed to get page count")
	}
	if pageCount == 0 {
		return nil, errdefs.New(errdefs.KindConversion, "no pages could be extracted from the PDF")
	}

	r.Logger.Debug("opened pdf", "file", filepath.Base(pdfPath), "pages", pageCount, "dpi", r.DPI)

	return &Document{
		path:      pdfPath,
		pageCount: pageCount,
		r:         r,
	}, nil
}

// Path returns the source PDF path.
func (d *Document) Path() string {
	return d.path
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.pageCount
}

// RenderPage renders a single page (1-based) and returns the PNG bytes.
// Render failures are conversion errors and abort the whole file.
func (d *Document) RenderPage(ctx context.Context, page int) ([]byte, error) {
	if page < 1 || page > d.pageCount {
		return nil, errdefs.New(errdefs.KindConversion,
			"page %d out of range (document has %d pages)", page, d.pageCount)
	}

	// Temp directory scopes pdftoppm output to this render.
	tmpDir, err := os.MkdirTemp("", "tablescan-page-*")
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindConversion, err, "failed to create temp dir")
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")

	start := time.Now()
	cmd := exec.CommandContext(ctx, d.r.PdftoppmPath, d.r.pdftoppmArgs(page, d.path, outputPrefix)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindConversion, err,
			fmt.Sprintf("pdftoppm failed for page %d (output: %s)", page, string(output)))
	}

	// pdftoppm with -singlefile creates: <prefix>.png
	srcPath := outputPrefix + ".png"
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindConversion, err, "pdftoppm did not create expected output")
	}

	d.r.Logger.Debug("rendered page",
		"file", filepath.Base(d.path),
		"page", page,
		"bytes", len(data),
		"duration", time.Since(start),
	)

	return data, nil
}

// pdftoppmArgs builds the argument list for rendering one page.
// -png: output PNG format
// -f/-l: first and last page, the same page for single-page renders
// -r: resolution in DPI
// -singlefile: don't add a page number suffix to the output name
func (r *Renderer) pdftoppmArgs(page int, pdfPath, outputPrefix string) []string {
	pageStr := strconv.Itoa(page)
	return []string{
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(r.DPI),
		"-singlefile",
		pdfPath,
		outputPrefix,
	}
}
