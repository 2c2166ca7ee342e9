// Package glossary maintains the per-job translation glossary: a main file of
// "source => translation" entries split into name and context subfiles that
// ride along with every translation request.
package glossary

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/AZAnthonyN/GeminiTL/internal/control"
	"github.com/AZAnthonyN/GeminiTL/internal/logging"
	"github.com/AZAnthonyN/GeminiTL/internal/providers"
	"github.com/AZAnthonyN/GeminiTL/internal/services"
	"github.com/AZAnthonyN/GeminiTL/internal/textutil"
)

const (
	namesHeader   = "== Character Names =="
	contextHeader = "== Context Terms =="

	// NameFile and ContextFile are the subfile names written next to the main
	// glossary, under a directory named after it.
	NameFile    = "name_glossary.txt"
	ContextFile = "context_glossary.txt"
)

const extractionInstructions = `You maintain a translation glossary for a novel being translated into English.
From the provided chapter text, extract terms a translator must render consistently:
- Character names (people, nicknames, titles used as names)
- Context terms (places, organizations, skills, items, recurring phrases)

Output ONLY glossary lines in this exact format, nothing else:

== Character Names ==
original => English translation

== Context Terms ==
original => English translation

If a section has no entries, still print its header. Do not repeat terms. Do not explain.`

// Entry is one glossary line.
type Entry struct {
	Source string
	Target string
	// Name marks character-name entries; everything else is a context term.
	Name bool
}

// Engine is the provider call used for term extraction.
type Engine interface {
	Translate(ctx context.Context, req providers.Request, preferred string, token *control.Token) providers.Result
}

// Glossary tracks the active glossary file for a job.
type Glossary struct {
	dir     string
	current string
	engine  Engine
	logger  *slog.Logger
}

// Option configures a Glossary.
type Option func(*Glossary)

// WithLogger sets the glossary logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Glossary) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a Glossary rooted at dir. engine may be nil when extraction is
// not needed (proofing-only runs).
func New(dir string, engine Engine, opts ...Option) *Glossary {
	g := &Glossary{dir: dir, engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CurrentFile returns the active glossary file path, empty when unset.
func (g *Glossary) CurrentFile() string { return g.current }

// SetCurrentFile pins the active glossary file.
func (g *Glossary) SetCurrentFile(path string) { g.current = path }

// CreateIfNone ensures a glossary named after the job folder exists and makes
// it current. An already-set current file is left alone.
func (g *Glossary) CreateIfNone(folder string) error {
	if g.current != "" {
		return nil
	}
	name := textutil.SanitizeFileName(filepath.Base(folder))
	if name == "" {
		name = "glossary"
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return fmt.Errorf("create glossary directory: %w", err)
	}
	path := filepath.Join(g.dir, name+".txt")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		content := namesHeader + "\n\n" + contextHeader + "\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("create glossary file: %w", err)
		}
		g.logger.Info("created glossary", logging.String(logging.FieldFile, path))
	} else if err != nil {
		return fmt.Errorf("stat glossary file: %w", err)
	}
	g.current = path
	return nil
}

// Build extracts terms from chapter text through the provider engine and
// merges them into the current glossary file.
func (g *Glossary) Build(ctx context.Context, content, sourceLang string, token *control.Token) error {
	if g.engine == nil {
		return services.Wrap(services.ErrConfiguration, "glossary", "build", "no provider engine configured", nil)
	}
	if g.current == "" {
		return services.Wrap(services.ErrConfiguration, "glossary", "build", "no glossary file selected", nil)
	}
	if token.Cancelled() {
		return services.ErrCancelled
	}

	result := g.engine.Translate(ctx, providers.Request{
		Text:           content,
		SourceLanguage: sourceLang,
		Instructions:   []string{extractionInstructions},
	}, "", token)
	if !result.Success {
		if token.Cancelled() {
			return services.ErrCancelled
		}
		return services.Wrap(services.ErrUnavailable, "glossary", "build",
			fmt.Sprintf("term extraction failed: %s", result.Err), nil)
	}

	extracted := ParseEntries(result.Text)
	if len(extracted) == 0 {
		g.logger.Debug("no glossary terms extracted")
		return nil
	}
	existing, err := g.load()
	if err != nil {
		return err
	}
	merged, added := merge(existing, extracted)
	if added == 0 {
		return nil
	}
	if err := g.save(merged); err != nil {
		return err
	}
	g.logger.Info("glossary updated",
		logging.Int("added", added),
		logging.Int("total", len(merged)))
	return nil
}

// Split writes the name and context subfiles next to the current glossary,
// under a directory named after it.
func (g *Glossary) Split() error {
	if g.current == "" {
		return services.Wrap(services.ErrConfiguration, "glossary", "split", "no glossary file selected", nil)
	}
	entries, err := g.load()
	if err != nil {
		return err
	}
	subdir := g.subdir()
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		return fmt.Errorf("create glossary subdirectory: %w", err)
	}
	var names, terms []string
	for _, entry := range entries {
		line := entry.Source + " => " + entry.Target
		if entry.Name {
			names = append(names, line)
		} else {
			terms = append(terms, line)
		}
	}
	if err := writeLines(filepath.Join(subdir, NameFile), names); err != nil {
		return err
	}
	return writeLines(filepath.Join(subdir, ContextFile), terms)
}

// NameGlossary returns the name subfile content, empty when absent.
func (g *Glossary) NameGlossary() string { return g.readSubfile(NameFile) }

// ContextGlossary returns the context subfile content, empty when absent.
func (g *Glossary) ContextGlossary() string { return g.readSubfile(ContextFile) }

// Entries returns the parsed contents of the current glossary file.
func (g *Glossary) Entries() ([]Entry, error) { return g.load() }

func (g *Glossary) subdir() string {
	base := strings.TrimSuffix(filepath.Base(g.current), filepath.Ext(g.current))
	return filepath.Join(filepath.Dir(g.current), base)
}

func (g *Glossary) readSubfile(name string) string {
	if g.current == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(g.subdir(), name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (g *Glossary) load() ([]Entry, error) {
	data, err := os.ReadFile(g.current)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}
	return ParseEntries(string(data)), nil
}

func (g *Glossary) save(entries []Entry) error {
	var b strings.Builder
	b.WriteString(namesHeader + "\n")
	for _, entry := range entries {
		if entry.Name {
			b.WriteString(entry.Source + " => " + entry.Target + "\n")
		}
	}
	b.WriteString("\n" + contextHeader + "\n")
	for _, entry := range entries {
		if !entry.Name {
			b.WriteString(entry.Source + " => " + entry.Target + "\n")
		}
	}
	if err := os.WriteFile(g.current, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write glossary: %w", err)
	}
	return nil
}

// ParseEntries parses glossary text: "source => target" lines grouped under
// the character-names and context-terms headers. Lines before any header
// count as context terms.
func ParseEntries(text string) []Entry {
	var entries []Entry
	inNames := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "character names") {
			inNames = true
			continue
		}
		if strings.Contains(lower, "context terms") {
			inNames = false
			continue
		}
		source, target, ok := strings.Cut(line, "=>")
		if !ok {
			continue
		}
		source = strings.TrimSpace(source)
		target = strings.TrimSpace(target)
		if source == "" || target == "" {
			continue
		}
		entries = append(entries, Entry{Source: source, Target: target, Name: inNames})
	}
	return entries
}

func merge(existing, extracted []Entry) ([]Entry, int) {
	seen := make(map[string]bool, len(existing))
	for _, entry := range existing {
		seen[entry.Source] = true
	}
	merged := existing
	added := 0
	for _, entry := range extracted {
		if seen[entry.Source] {
			continue
		}
		seen[entry.Source] = true
		merged = append(merged, entry)
		added++
	}
	return merged, added
}

func writeLines(path string, lines []string) error {
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
