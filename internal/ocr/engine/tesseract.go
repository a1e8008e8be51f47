// Package engine drives text extraction through external OCR tooling.
// Whole documents go through a single tesseract invocation; page subsets are
// rasterized one page at a time and OCRed individually.
package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/domain"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/config"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/logger"
)

// pageSegmentationMode 6 treats the page as a single uniform block of text,
// which matches the fixed layout of scanned registry forms.
const pageSegmentationMode = "6"

// Engine extracts text from documents via the tesseract binary
type Engine struct {
	cfg    *config.OCRConfig
	runner Runner
	logger *logger.Logger
}

// New creates a new extraction engine
func New(cfg *config.OCRConfig, runner Runner, log *logger.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		runner: runner,
		logger: log,
	}
}

// Extract runs OCR over the document at path. With an empty page selection
// the whole document is processed in one invocation; otherwise each selected
// page is rasterized and processed independently, and the per-page texts are
// concatenated in ascending page order with labeled separators. Returns the
// extracted text and the number of pages that produced output.
func (e *Engine) Extract(ctx context.Context, documentPath string, pages []int) (string, int, error) {
	tesseract, err := e.findTesseract()
	if err != nil {
		return "", 0, err
	}

	if len(pages) == 0 {
		text, err := e.extractWhole(ctx, tesseract, documentPath)
		if err != nil {
			return "", 0, err
		}
		return text, 1, nil
	}

	return e.extractPages(ctx, tesseract, documentPath, domain.NormalizePages(pages))
}

// Version reports the tesseract version string, or empty when unavailable
func (e *Engine) Version(ctx context.Context) string {
	tesseract, err := e.findTesseract()
	if err != nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProcessTimeout)
	defer cancel()

	out, err := e.runner.Run(ctx, tesseract, []string{"--version"})
	if err != nil {
		return ""
	}
	if line := strings.SplitN(string(out), "\n", 2)[0]; line != "" {
		return strings.TrimSpace(line)
	}
	return ""
}

// findTesseract probes the configured install locations in order, then PATH
func (e *Engine) findTesseract() (string, error) {
	for _, candidate := range e.cfg.TesseractPaths {
		if candidate == "" {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath("tesseract"); err == nil {
		return path, nil
	}

	return "", domain.ErrEngineNotFound
}

// extractWhole runs tesseract once over the entire document
func (e *Engine) extractWhole(ctx context.Context, tesseract, documentPath string) (string, error) {
	workDir, err := os.MkdirTemp(e.cfg.TempDir, "ocr-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	outBase := filepath.Join(workDir, "out")
	text, err := e.runTesseract(ctx, tesseract, documentPath, outBase)
	if err != nil {
		return "", err
	}

	return text, nil
}

// extractPages rasterizes and OCRs each selected page independently. Pages
// that cannot be rasterized or OCRed are skipped; the run fails only when no
// page produced output.
func (e *Engine) extractPages(ctx context.Context, tesseract, documentPath string, pages []int) (string, int, error) {
	workDir, err := os.MkdirTemp(e.cfg.TempDir, "ocr-pages-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	var sections []string
	processed := 0

	for _, page := range pages {
		imagePath, err := e.rasterizePage(ctx, documentPath, workDir, page)
		if err != nil {
			e.logger.Warn().Err(err).Int("page", page).Msg("page rasterization failed, skipping")
			continue
		}

		outBase := filepath.Join(workDir, "page-"+strconv.Itoa(page))
		text, err := e.runTesseract(ctx, tesseract, imagePath, outBase)
		os.Remove(imagePath)
		if err != nil {
			e.logger.Warn().Err(err).Int("page", page).Msg("page OCR failed, skipping")
			continue
		}

		sections = append(sections, fmt.Sprintf("----- Page %d -----\n%s", page, strings.TrimSpace(text)))
		processed++
	}

	if processed == 0 {
		return "", 0, domain.ErrNoPagesExtracted
	}

	return strings.Join(sections, "\n\n"), processed, nil
}

// runTesseract invokes tesseract on inputPath and reads back the text file
// it leaves at outBase.txt. The output file is removed after reading.
func (e *Engine) runTesseract(ctx context.Context, tesseract, inputPath, outBase string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProcessTimeout)
	defer cancel()

	args := []string{
		inputPath, outBase,
		"--psm", pageSegmentationMode,
		"-l", e.cfg.Language,
	}

	outFile := outBase + ".txt"
	defer os.Remove(outFile)

	output, err := e.runner.Run(ctx, tesseract, args)
	if err != nil {
		return "", &domain.ProcessFailedError{Tool: "tesseract", Output: string(output), Err: err}
	}

	text, err := os.ReadFile(outFile)
	if err != nil {
		return "", &domain.ProcessFailedError{Tool: "tesseract", Output: string(output), Err: fmt.Errorf("output file missing: %w", err)}
	}

	return string(text), nil
}

// rasterizePage renders one page of the document to a PNG. pdftoppm is the
// primary tool; ImageMagick is attempted when pdftoppm fails or is absent.
func (e *Engine) rasterizePage(ctx context.Context, documentPath, workDir string, page int) (string, error) {
	imagePath, primaryErr := e.rasterizeWithPdftoppm(ctx, documentPath, workDir, page)
	if primaryErr == nil {
		return imagePath, nil
	}

	imagePath, secondaryErr := e.rasterizeWithMagick(ctx, documentPath, workDir, page)
	if secondaryErr == nil {
		return imagePath, nil
	}

	return "", fmt.Errorf("pdftoppm: %v; magick: %v", primaryErr, secondaryErr)
}

func (e *Engine) rasterizeWithPdftoppm(ctx context.Context, documentPath, workDir string, page int) (string, error) {
	tool := e.cfg.PdftoppmPath
	if tool == "" {
		var err error
		tool, err = exec.LookPath("pdftoppm")
		if err != nil {
			return "", fmt.Errorf("pdftoppm not available: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProcessTimeout)
	defer cancel()

	pageStr := strconv.Itoa(page)
	prefix := filepath.Join(workDir, "raster-"+pageStr)
	args := []string{
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(e.cfg.DPI),
		"-png",
		documentPath, prefix,
	}

	output, err := e.runner.Run(ctx, tool, args)
	if err != nil {
		return "", &domain.ProcessFailedError{Tool: "pdftoppm", Output: string(output), Err: err}
	}

	// pdftoppm zero-pads the page number in the output name depending on the
	// document's page count, so probe the plausible suffixes.
	for _, suffix := range []string{
		"-" + pageStr + ".png",
		fmt.Sprintf("-%02d.png", page),
		fmt.Sprintf("-%03d.png", page),
	} {
		candidate := prefix + suffix
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", &domain.ProcessFailedError{Tool: "pdftoppm", Output: string(output), Err: fmt.Errorf("no output image for page %d", page)}
}

func (e *Engine) rasterizeWithMagick(ctx context.Context, documentPath, workDir string, page int) (string, error) {
	tool := e.cfg.MagickPath
	if tool == "" {
		var err error
		tool, err = exec.LookPath("magick")
		if err != nil {
			tool, err = exec.LookPath("convert")
			if err != nil {
				return "", fmt.Errorf("imagemagick not available: %w", err)
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProcessTimeout)
	defer cancel()

	imagePath := filepath.Join(workDir, fmt.Sprintf("magick-%d.png", page))
	args := []string{
		"-density", strconv.Itoa(e.cfg.DPI),
		// ImageMagick page indices are zero-based
		fmt.Sprintf("%s[%d]", documentPath, page-1),
		imagePath,
	}

	output, err := e.runner.Run(ctx, tool, args)
	if err != nil {
		return "", &domain.ProcessFailedError{Tool: "magick", Output: string(output), Err: err}
	}

	if _, err := os.Stat(imagePath); err != nil {
		return "", &domain.ProcessFailedError{Tool: "magick", Output: string(output), Err: fmt.Errorf("no output image for page %d", page)}
	}

	return imagePath, nil
}
