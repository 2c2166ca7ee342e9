// Package proofing runs the post-translation passes: image block repair,
// non-English line detection, the disabled gender pass, and the final AI
// proofread into output/proofed_ai.
package proofing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AZAnthonyN/GeminiTL/internal/control"
	"github.com/AZAnthonyN/GeminiTL/internal/logging"
	"github.com/AZAnthonyN/GeminiTL/internal/providers"
	"github.com/AZAnthonyN/GeminiTL/internal/services"
	"github.com/AZAnthonyN/GeminiTL/internal/textutil"
)

// ProofedDirName is the subdirectory of the output folder that receives the
// final AI-proofed files.
const ProofedDirName = "proofed_ai"

// DefaultMinSizeBytes is the size at or below which files skip AI passes and
// are copied through unchanged.
const DefaultMinSizeBytes = 1024

const proofreadInstructions = `You are an English copy editor for translated web novels.
Fix grammar, awkward phrasing, tense slips, and untranslated fragments in the provided text.
Rules:
- Do not change names, honorifics, or glossary terms.
- Do not summarize, reorder, or drop content.
- Preserve all HTML tags, placeholders, and <<<IMAGE_START>>>...<<<IMAGE_END>>> blocks exactly.
- Keep paragraph breaks as they are.
Output only the corrected text.`

const glossaryProofInstructions = `You are reviewing a translation glossary. Each line has the form "original => English translation" under a section header.
Fix misspelled or inconsistent English translations, remove duplicate lines, and keep the section headers and line format exactly as given.
Output only the corrected glossary.`

// Engine is the provider call used by the AI proofing passes.
type Engine interface {
	Translate(ctx context.Context, req providers.Request, preferred string, token *control.Token) providers.Result
}

// Proofreader applies the proofing subphases to a job's output directory.
type Proofreader struct {
	engine  Engine
	minSize int
	logger  *slog.Logger
}

// Option configures a Proofreader.
type Option func(*Proofreader)

// WithLogger sets the proofreader logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Proofreader) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMinSize overrides the copy-through size threshold.
func WithMinSize(bytes int) Option {
	return func(p *Proofreader) {
		if bytes > 0 {
			p.minSize = bytes
		}
	}
}

// New creates a Proofreader. engine may be nil when only the non-AI passes
// will run.
func New(engine Engine, opts ...Option) *Proofreader {
	p := &Proofreader{engine: engine, minSize: DefaultMinSizeBytes, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProofGlossaryFile runs the AI cleanup pass over a glossary file, writing the
// result back in place. Missing or empty files are left alone.
func (p *Proofreader) ProofGlossaryFile(ctx context.Context, path string, token *control.Token) error {
	if p.engine == nil {
		return services.Wrap(services.ErrConfiguration, "proofing", "glossary", "no provider engine configured", nil)
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read glossary: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil
	}
	result := p.engine.Translate(ctx, providers.Request{
		Text:         string(data),
		Instructions: []string{glossaryProofInstructions},
	}, "", token)
	if !result.Success {
		if token.Cancelled() {
			return services.ErrCancelled
		}
		return services.Wrap(services.ErrUnavailable, "proofing", "glossary",
			fmt.Sprintf("glossary proofing failed: %s", result.Err), nil)
	}
	if strings.TrimSpace(result.Text) == "" {
		p.logger.Warn("glossary proofing returned empty text, keeping original",
			logging.String(logging.FieldFile, path))
		return nil
	}
	if err := os.WriteFile(path, []byte(result.Text), 0o644); err != nil {
		return fmt.Errorf("write glossary: %w", err)
	}
	p.logger.Info("glossary proofed", logging.String(logging.FieldFile, path))
	return nil
}

// PatchMissingImages reinserts image blocks into translated files whose names
// mark them as image chapters.
func (p *Proofreader) PatchMissingImages(inputDir, outputDir string) {
	for _, name := range listOutputFiles(outputDir) {
		if !textutil.ExpectsImages(name) {
			continue
		}
		inputText, outputText, outputPath, err := readPair(inputDir, outputDir, name)
		if err != nil {
			p.logger.Warn("image patch skipped", logging.String(logging.FieldFile, name), logging.Error(err))
			continue
		}
		patched := textutil.InsertMissingImageBlocks(inputText, outputText)
		if patched == outputText {
			continue
		}
		if err := os.WriteFile(outputPath, []byte(patched), 0o644); err != nil {
			p.logger.Warn("image patch write failed", logging.String(logging.FieldFile, name), logging.Error(err))
			continue
		}
		p.logger.Info("missing image blocks inserted", logging.String(logging.FieldFile, name))
	}
}

// ValidateImageBlocks patches image chapters that lost their blocks and strips
// image markup from files that should not carry any.
func (p *Proofreader) ValidateImageBlocks(inputDir, outputDir string) {
	for _, name := range listOutputFiles(outputDir) {
		inputText, outputText, outputPath, err := readPair(inputDir, outputDir, name)
		if err != nil {
			p.logger.Warn("image validation skipped", logging.String(logging.FieldFile, name), logging.Error(err))
			continue
		}
		current := outputText
		if patched, changed := textutil.PatchImageBlocksIfMissing(name, inputText, current); changed {
			p.logger.Info("missing image blocks patched", logging.String(logging.FieldFile, name))
			current = patched
		}
		if cleaned, changed := textutil.RemoveImageBlocksIfUnexpected(name, current); changed {
			p.logger.Info("unexpected image blocks removed", logging.String(logging.FieldFile, name))
			current = cleaned
		}
		if current == outputText {
			continue
		}
		if err := os.WriteFile(outputPath, []byte(current), 0o644); err != nil {
			p.logger.Warn("image validation write failed", logging.String(logging.FieldFile, name), logging.Error(err))
		}
	}
}

// DetectNonEnglish scans translated files for lines containing non-Latin
// letters and appends findings to logPath. Returns the number of flagged
// lines.
func (p *Proofreader) DetectNonEnglish(outputDir, logPath string, gate *control.Gate, token *control.Token) (int, error) {
	var findings []string
	for _, name := range listOutputFiles(outputDir) {
		if err := gate.Wait(token); err != nil {
			return len(findings), err
		}
		data, err := os.ReadFile(filepath.Join(outputDir, name))
		if err != nil {
			p.logger.Warn("non-english check skipped", logging.String(logging.FieldFile, name), logging.Error(err))
			continue
		}
		content := string(data)
		if len(data) <= p.minSize {
			p.logger.Debug("file too small for non-english check",
				logging.String(logging.FieldFile, name), logging.Int("bytes", len(data)))
			continue
		}
		if textutil.IsImageOnlyChapter(content) {
			p.logger.Debug("image-only chapter skipped", logging.String(logging.FieldFile, name))
			continue
		}
		for i, line := range strings.Split(content, "\n") {
			if textutil.ContainsNonLatinLetters(line) {
				findings = append(findings, fmt.Sprintf("%s:%d: %s", name, i+1, strings.TrimSpace(line)))
			}
		}
	}
	if len(findings) > 0 {
		if err := os.WriteFile(logPath, []byte(strings.Join(findings, "\n")+"\n"), 0o644); err != nil {
			return len(findings), fmt.Errorf("write non-english log: %w", err)
		}
		p.logger.Warn("non-english lines detected",
			logging.Int("lines", len(findings)),
			logging.String(logging.FieldFile, logPath))
	} else {
		p.logger.Info("no non-english lines found")
	}
	return len(findings), nil
}

// ProofGender is permanently disabled; it only logs the skip.
func (p *Proofreader) ProofGender() {
	p.logger.Info("gender proofing is disabled, skipping")
}

// ProofFinal runs the AI proofread over every translated file, writing results
// under outputDir/proofed_ai. Small and image-only files are copied through.
// Per-file failures are logged and skipped.
func (p *Proofreader) ProofFinal(ctx context.Context, outputDir string, gate *control.Gate, token *control.Token) error {
	if p.engine == nil {
		return services.Wrap(services.ErrConfiguration, "proofing", "final", "no provider engine configured", nil)
	}
	proofedDir := filepath.Join(outputDir, ProofedDirName)
	if err := os.MkdirAll(proofedDir, 0o755); err != nil {
		return fmt.Errorf("create proofed directory: %w", err)
	}
	for _, name := range listOutputFiles(outputDir) {
		if err := gate.Wait(token); err != nil {
			return err
		}
		path := filepath.Join(outputDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			p.logger.Warn("proofing read failed", logging.String(logging.FieldFile, name), logging.Error(err))
			continue
		}
		content := string(data)
		target := filepath.Join(proofedDir, name)
		if len(data) <= p.minSize || textutil.IsImageOnlyChapter(content) {
			if err := os.WriteFile(target, data, 0o644); err != nil {
				p.logger.Warn("copy-through failed", logging.String(logging.FieldFile, name), logging.Error(err))
			}
			continue
		}
		result := p.engine.Translate(ctx, providers.Request{
			Text:         content,
			Instructions: []string{proofreadInstructions},
		}, "", token)
		if !result.Success {
			if token.Cancelled() {
				return services.ErrCancelled
			}
			p.logger.Warn("ai proofing failed",
				logging.String(logging.FieldFile, name),
				logging.String("error", result.Err))
			continue
		}
		if err := os.WriteFile(target, []byte(result.Text), 0o644); err != nil {
			p.logger.Warn("proofed write failed", logging.String(logging.FieldFile, name), logging.Error(err))
			continue
		}
		p.logger.Info("ai proofing done", logging.String(logging.FieldFile, name))
	}
	return nil
}

func listOutputFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".txt") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

func readPair(inputDir, outputDir, name string) (inputText, outputText, outputPath string, err error) {
	inputName := strings.Replace(name, "translated_", "", 1)
	inputData, err := os.ReadFile(filepath.Join(inputDir, inputName))
	if err != nil {
		return "", "", "", err
	}
	outputPath = filepath.Join(outputDir, name)
	outputData, err := os.ReadFile(outputPath)
	if err != nil {
		return "", "", "", err
	}
	return string(inputData), string(outputData), outputPath, nil
}
