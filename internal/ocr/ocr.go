// Package ocr turns uploaded invoice files into plain text using external tools.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/scope3-tracker/constants"
	"github.com/joseph-ayodele/scope3-tracker/internal/common"
)

type Config struct {
	Pdftotext     string        // binary name or absolute path; if empty -> "pdftotext"
	Tesseract     string        // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string        // default "eng"
	Timeout       time.Duration // per-file bound, default 60s
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the command runner, mostly for tests.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ExtractText returns best-effort text for data. It never fails: when the format is not
// recognised or the external tool fails, the bytes are decoded as UTF-8 with invalid
// sequences dropped.
func (e *Extractor) ExtractText(ctx context.Context, data []byte, filename string) string {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(filename))
	format := constants.MapExtToFormat(ext)
	e.logger.Debug("ocr.extract.start", "filename", filename, "ext", ext, "format", format, "bytes", len(data))

	if format == constants.PDF || format == constants.IMAGE {
		ctx, cancel := common.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()

		text, err := e.runTool(ctx, format, ext, data)
		if err == nil {
			text = Normalize(text)
			e.logger.Info("ocr.extract.ok",
				"filename", filename,
				"method", format,
				"chars", len(text),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return text
		}
		e.logger.Warn("ocr.extract.fallback_utf8", "filename", filename, "method", format, "error", err)
	}

	return Normalize(strings.ToValidUTF8(string(data), ""))
}

// ExtractFile reads path and extracts its text. Only the read can fail.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return e.ExtractText(ctx, data, filepath.Base(path)), nil
}

func (e *Extractor) runTool(ctx context.Context, format, ext string, data []byte) (string, error) {
	tmpDir, err := os.MkdirTemp("", "scope3-ocr-*")
	if err != nil {
		return "", err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("ocr.tmp.cleanup_error", "path", path, "error", err)
		}
	}(tmpDir)

	in := filepath.Join(tmpDir, "input."+ext)
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return "", fmt.Errorf("stage input: %w", err)
	}

	var (
		out, errb []byte
		runErr    error
	)
	switch format {
	case constants.PDF:
		// pdftotext -layout -enc UTF-8 -eol unix <in> -
		out, errb, runErr = e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", in, "-")
	default:
		// tesseract <in> stdout -l eng
		out, errb, runErr = e.runner.Run(ctx, e.cfg.Tesseract, in, "stdout", "-l", e.cfg.TesseractLang)
	}
	if runErr != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return "", fmt.Errorf("%w: %s", runErr, truncate(msg, 512))
		}
		return "", runErr
	}
	return string(out), nil
}
