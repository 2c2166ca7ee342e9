// Package phase sequences one job through the glossary, translation, and
// proofing phases, owning the size-deviation retry policy and every
// pause/cancel suspension point.
package phase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/AZAnthonyN/GeminiTL/internal/control"
	"github.com/AZAnthonyN/GeminiTL/internal/fileutil"
	"github.com/AZAnthonyN/GeminiTL/internal/logging"
	"github.com/AZAnthonyN/GeminiTL/internal/services"
	"github.com/AZAnthonyN/GeminiTL/internal/textutil"
)

// Mode selects where a run enters the pipeline.
type Mode int

const (
	// ModeFull runs glossary, translation, and proofing.
	ModeFull Mode = iota
	// ModeSkipGlossary starts at translation.
	ModeSkipGlossary
	// ModeGlossaryOnly builds the glossary and stops.
	ModeGlossaryOnly
	// ModeProofingOnly runs only the proofing phase.
	ModeProofingOnly
)

// Proofing subphase names accepted by RunOptions.Subphase.
const (
	SubphaseNonEnglish = "non-english"
	SubphaseGender     = "gender"
	SubphaseFinal      = "final"
)

// NonEnglishLogName is the file under the output directory that collects
// flagged lines.
const NonEnglishLogName = "non_english_lines.log"

var placeholderPattern = regexp.MustCompile(`__IMAGE_TAG_(\d+)__`)

// Config carries the pipeline thresholds and directories.
type Config struct {
	InputDir       string
	OutputDir      string
	SourceLanguage string

	// GlossaryDelay is the courtesy pause between glossary files.
	GlossaryDelay time.Duration
	// SizeDeviationPercent and SizeDeviationKB are the thresholds beyond which
	// a translation is retried: a file retries when |percent| exceeds the
	// percent threshold or the absolute KB difference exceeds the KB threshold.
	SizeDeviationPercent float64
	SizeDeviationKB      float64
	// SizeRetryLimit caps re-translations of a suspicious file.
	SizeRetryLimit int
	// SizeRetryBase seeds the escalating waits (base, 2x, 4x, ...).
	SizeRetryBase time.Duration
	// RequestTimeout bounds each translation call.
	RequestTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.GlossaryDelay <= 0 {
		c.GlossaryDelay = 3 * time.Second
	}
	if c.SizeDeviationPercent <= 0 {
		c.SizeDeviationPercent = 115.0
	}
	if c.SizeDeviationKB <= 0 {
		c.SizeDeviationKB = 7.0
	}
	if c.SizeRetryLimit <= 0 {
		c.SizeRetryLimit = 4
	}
	if c.SizeRetryBase <= 0 {
		c.SizeRetryBase = 30 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 120 * time.Second
	}
}

// Translator produces English text for one chapter.
type Translator interface {
	Translate(ctx context.Context, text string, token *control.Token) (string, error)
}

// GlossaryManager is the glossary collaborator.
type GlossaryManager interface {
	CurrentFile() string
	SetCurrentFile(path string)
	CreateIfNone(folder string) error
	Build(ctx context.Context, content, sourceLang string, token *control.Token) error
	Split() error
}

// Proofreader is the proofing collaborator.
type Proofreader interface {
	ProofGlossaryFile(ctx context.Context, path string, token *control.Token) error
	PatchMissingImages(inputDir, outputDir string)
	ValidateImageBlocks(inputDir, outputDir string)
	DetectNonEnglish(outputDir, logPath string, gate *control.Gate, token *control.Token) (int, error)
	ProofGender()
	ProofFinal(ctx context.Context, outputDir string, gate *control.Gate, token *control.Token) error
}

// OCR replaces image tags with extracted text before translation.
type OCR interface {
	ReplaceImageTags(ctx context.Context, content, imagesDir string) string
}

// RunOptions selects the entry mode and glossary for one run.
type RunOptions struct {
	Mode Mode
	// Subphase restricts proofing to one subphase; empty runs them all.
	Subphase string
	// SkipProofing drops the proofing phase entirely.
	SkipProofing bool
	// GlossaryFile pins an existing glossary instead of the per-job one.
	GlossaryFile string
	// JobFolder names the job, used for glossary auto-creation. Defaults to
	// the input directory.
	JobFolder string
}

// Controller runs the phases for one job.
type Controller struct {
	cfg        Config
	translator Translator
	glossary   GlossaryManager
	proof      Proofreader
	ocr        OCR
	executor   control.Executor
	sleep      func(time.Duration, *control.Token) error
	logger     *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOCR wires the OCR collaborator.
func WithOCR(ocr OCR) Option {
	return func(c *Controller) { c.ocr = ocr }
}

// WithSleeper overrides how cancellable waits are performed (for tests).
func WithSleeper(sleep func(time.Duration, *control.Token) error) Option {
	return func(c *Controller) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// New creates a Controller.
func New(cfg Config, translator Translator, glossary GlossaryManager, proof Proofreader, opts ...Option) *Controller {
	cfg.applyDefaults()
	c := &Controller{
		cfg:        cfg,
		translator: translator,
		glossary:   glossary,
		proof:      proof,
		executor:   control.Executor{Timeout: cfg.RequestTimeout},
		sleep:      control.Sleep,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the configured phases. It returns services.ErrCancelled when
// the token fires at any suspension point; other per-file failures are logged
// and do not abort the run.
func (c *Controller) Run(ctx context.Context, opts RunOptions, gate *control.Gate, token *control.Token) error {
	if err := c.setupGlossary(opts); err != nil {
		return err
	}

	files, err := fileutil.ListTextFiles(c.cfg.InputDir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("list input files: %w", err)
	}

	if opts.Mode != ModeProofingOnly {
		if len(files) > 0 && (opts.Mode == ModeFull || opts.Mode == ModeGlossaryOnly) {
			if err := c.runGlossaryPhase(ctx, files, gate, token); err != nil {
				return err
			}
		}
		if opts.Mode == ModeGlossaryOnly {
			return nil
		}
		if len(files) > 0 {
			if err := c.runTranslationPhase(ctx, files, gate, token); err != nil {
				return err
			}
		}
	}

	if opts.SkipProofing {
		c.logger.Info("proofing phase skipped")
		return nil
	}
	return c.runProofingPhase(ctx, opts.Subphase, gate, token)
}

func (c *Controller) setupGlossary(opts RunOptions) error {
	if opts.GlossaryFile != "" {
		c.glossary.SetCurrentFile(opts.GlossaryFile)
	} else {
		folder := opts.JobFolder
		if folder == "" {
			folder = c.cfg.InputDir
		}
		if err := c.glossary.CreateIfNone(folder); err != nil {
			return fmt.Errorf("set up glossary: %w", err)
		}
	}
	c.logger.Info("using glossary", logging.String(logging.FieldFile, c.glossary.CurrentFile()))
	if err := c.glossary.Split(); err != nil {
		c.logger.Warn("glossary split failed", logging.Error(err))
	}
	return nil
}

func (c *Controller) runGlossaryPhase(ctx context.Context, files []string, gate *control.Gate, token *control.Token) error {
	c.logger.Info("glossary phase started", logging.Int("files", len(files)))
	for i, name := range files {
		if err := gate.Wait(token); err != nil {
			return err
		}
		content, err := os.ReadFile(filepath.Join(c.cfg.InputDir, name))
		if err != nil {
			c.logger.Error("glossary read failed", logging.String(logging.FieldFile, name), logging.Error(err))
			continue
		}
		if err := gate.Wait(token); err != nil {
			return err
		}
		if textutil.IsImageOnlyChapter(string(content)) {
			c.logger.Info("image-only chapter, skipping glossary extraction",
				logging.String(logging.FieldFile, name))
			continue
		}
		if err := c.glossary.Build(ctx, string(content), c.cfg.SourceLanguage, token); err != nil {
			if services.IsCancelled(err) {
				return err
			}
			c.logger.Error("glossary extraction failed", logging.String(logging.FieldFile, name), logging.Error(err))
			continue
		}
		c.logger.Info("glossary terms extracted", logging.String(logging.FieldFile, name))
		if i < len(files)-1 {
			if err := c.sleep(c.cfg.GlossaryDelay, token); err != nil {
				return err
			}
		}
	}

	if err := c.proof.ProofGlossaryFile(ctx, c.glossary.CurrentFile(), token); err != nil {
		if services.IsCancelled(err) {
			return err
		}
		c.logger.Warn("glossary proofing failed", logging.Error(err))
	}
	if err := c.glossary.Split(); err != nil {
		c.logger.Warn("glossary split failed", logging.Error(err))
	}
	c.logger.Info("glossary phase finished")
	return nil
}

func (c *Controller) runTranslationPhase(ctx context.Context, files []string, gate *control.Gate, token *control.Token) error {
	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	c.logger.Info("translation phase started", logging.Int("files", len(files)))

	for i, name := range files {
		if err := gate.Wait(token); err != nil {
			return err
		}
		c.logger.Info("translating file",
			logging.String(logging.FieldFile, name),
			logging.Int(logging.FieldAttempt, i+1),
			logging.Int("total", len(files)))

		data, err := os.ReadFile(filepath.Join(c.cfg.InputDir, name))
		if err != nil {
			c.logger.Error("read failed", logging.String(logging.FieldFile, name), logging.Error(err))
			continue
		}
		if err := gate.Wait(token); err != nil {
			return err
		}

		content := string(data)
		outputPath := filepath.Join(c.cfg.OutputDir, "translated_"+name)

		if strings.TrimSpace(content) == "" {
			c.logger.Info("empty file, copying through", logging.String(logging.FieldFile, name))
			c.copyThrough(outputPath, data, name)
			continue
		}
		if textutil.IsImageOnlyChapter(content) {
			c.logger.Info("image-only chapter, copying through", logging.String(logging.FieldFile, name))
			c.copyThrough(outputPath, data, name)
			continue
		}
		if textutil.IsMarkupOnly(content) {
			c.logger.Info("markup-only file, copying through", logging.String(logging.FieldFile, name))
			c.copyThrough(outputPath, data, name)
			continue
		}

		if c.ocr != nil && strings.Contains(content, "<img") {
			c.logger.Info("running ocr", logging.String(logging.FieldFile, name))
			content = c.ocr.ReplaceImageTags(ctx, content, filepath.Join(c.cfg.InputDir, "images"))
		}

		translated, err := c.translateOnce(ctx, content, token)
		if err != nil {
			if services.IsCancelled(err) {
				return err
			}
			c.logger.Error("translation failed", logging.String(logging.FieldFile, name), logging.Error(err))
			continue
		}

		final, err := c.retryOnSizeDeviation(ctx, name, content, translated, token)
		if err != nil {
			return err
		}

		if err := os.WriteFile(outputPath, []byte(final), 0o644); err != nil {
			c.logger.Error("write failed", logging.String(logging.FieldFile, name), logging.Error(err))
			continue
		}
		c.logger.Info("translated output saved", logging.String(logging.FieldFile, outputPath))

		if !placeholdersMatch(content, final) {
			c.logger.Warn("image placeholder mismatch between source and translation",
				logging.String(logging.FieldFile, name))
		}
	}
	c.logger.Info("translation phase finished")
	return nil
}

// retryOnSizeDeviation applies the size heuristic: when the translated byte
// count deviates beyond either threshold, re-translate with escalating
// cancellable waits, accepting the first in-threshold retry. Exhausting the
// retries keeps the last translation with a notice; deviation is never fatal.
func (c *Controller) retryOnSizeDeviation(ctx context.Context, name, content, translated string, token *control.Token) (string, error) {
	originalSize := len(content)
	percentDiff, diffKB := sizeDeviation(originalSize, len(translated))
	final := translated

	for retry := 1; c.exceedsThresholds(percentDiff, diffKB) && retry <= c.cfg.SizeRetryLimit; retry++ {
		delay := c.cfg.SizeRetryBase * (1 << (retry - 1))
		c.logger.Warn("translation size mismatch, retrying",
			logging.String(logging.FieldFile, name),
			logging.Float64("percent_diff", percentDiff),
			logging.Float64("diff_kb", diffKB),
			logging.Int(logging.FieldAttempt, retry),
			logging.Int("max", c.cfg.SizeRetryLimit),
			logging.Duration("delay", delay))

		if err := c.sleep(delay, token); err != nil {
			return "", err
		}
		retranslated, err := c.translateOnce(ctx, content, token)
		if err != nil {
			if services.IsCancelled(err) {
				return "", err
			}
			c.logger.Error("size retry translation failed", logging.String(logging.FieldFile, name), logging.Error(err))
			break
		}
		retryPercent, retryKB := sizeDeviation(originalSize, len(retranslated))
		if !c.exceedsThresholds(retryPercent, retryKB) {
			c.logger.Info("size retry accepted", logging.String(logging.FieldFile, name))
			return retranslated, nil
		}
		percentDiff, diffKB = retryPercent, retryKB
		final = retranslated
	}

	if c.exceedsThresholds(percentDiff, diffKB) {
		c.logger.Warn("using translation despite size deviation",
			logging.String(logging.FieldFile, name),
			logging.Float64("percent_diff", percentDiff),
			logging.Float64("diff_kb", diffKB))
	}
	return final, nil
}

func (c *Controller) runProofingPhase(ctx context.Context, subphase string, gate *control.Gate, token *control.Token) error {
	c.logger.Info("proofing phase started")
	c.proof.PatchMissingImages(c.cfg.InputDir, c.cfg.OutputDir)
	c.proof.ValidateImageBlocks(c.cfg.InputDir, c.cfg.OutputDir)

	if subphase == "" || subphase == SubphaseNonEnglish {
		logPath := filepath.Join(c.cfg.OutputDir, NonEnglishLogName)
		if _, err := c.proof.DetectNonEnglish(c.cfg.OutputDir, logPath, gate, token); err != nil {
			return err
		}
	}
	if subphase == SubphaseGender {
		c.proof.ProofGender()
	}
	if subphase == "" || subphase == SubphaseFinal {
		if err := c.proof.ProofFinal(ctx, c.cfg.OutputDir, gate, token); err != nil {
			if services.IsCancelled(err) {
				return err
			}
			c.logger.Error("final proofing failed", logging.Error(err))
		}
	}
	c.logger.Info("proofing phase finished")
	return nil
}

// translateOnce bounds a translation call with the request timeout. The cancel
// handle tears down the in-flight provider request when the call is abandoned.
func (c *Controller) translateOnce(ctx context.Context, content string, token *control.Token) (string, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	return control.CallCancelable(c.executor, func() (string, error) {
		return c.translator.Translate(callCtx, content, token)
	}, cancel, token)
}

func (c *Controller) exceedsThresholds(percentDiff, diffKB float64) bool {
	return math.Abs(percentDiff) > c.cfg.SizeDeviationPercent || diffKB > c.cfg.SizeDeviationKB
}

func (c *Controller) copyThrough(outputPath string, data []byte, name string) {
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		c.logger.Error("copy-through failed", logging.String(logging.FieldFile, name), logging.Error(err))
	}
}

func sizeDeviation(originalBytes, translatedBytes int) (percentDiff, diffKB float64) {
	if originalBytes > 0 {
		percentDiff = float64(translatedBytes-originalBytes) / float64(originalBytes) * 100
	}
	diffKB = math.Abs(float64(translatedBytes-originalBytes)) / 1024.0
	return percentDiff, diffKB
}

func placeholdersMatch(source, translated string) bool {
	return equalSets(placeholderIDs(source), placeholderIDs(translated))
}

func placeholderIDs(text string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		ids[match[1]] = struct{}{}
	}
	return ids
}

func equalSets(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for key := range a {
		if _, ok := b[key]; !ok {
			return false
		}
	}
	return true
}
