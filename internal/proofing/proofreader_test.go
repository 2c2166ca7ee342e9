package proofing_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AZAnthonyN/GeminiTL/internal/control"
	"github.com/AZAnthonyN/GeminiTL/internal/proofing"
	"github.com/AZAnthonyN/GeminiTL/internal/providers"
	"github.com/AZAnthonyN/GeminiTL/internal/services"
)

type scriptedEngine struct {
	response providers.Result
	requests []providers.Request
}

func (s *scriptedEngine) Translate(_ context.Context, req providers.Request, _ string, _ *control.Token) providers.Result {
	s.requests = append(s.requests, req)
	return s.response
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDetectNonEnglish(t *testing.T) {
	outputDir := t.TempDir()
	flagged := "This line is fine.\nここは翻訳されていない。\nAnother fine line.\n" + strings.Repeat("padding line\n", 120)
	write(t, filepath.Join(outputDir, "translated_ch1.txt"), flagged)
	write(t, filepath.Join(outputDir, "translated_ch2.txt"), "tiny")

	p := proofing.New(nil)
	logPath := filepath.Join(outputDir, "non_english_lines.log")
	count, err := p.DetectNonEnglish(outputDir, logPath, nil, control.NewToken())
	if err != nil {
		t.Fatalf("DetectNonEnglish: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "translated_ch1.txt:2:") {
		t.Fatalf("log = %q", data)
	}
}

func TestDetectNonEnglishCancelled(t *testing.T) {
	outputDir := t.TempDir()
	write(t, filepath.Join(outputDir, "translated_ch1.txt"), "text")
	token := control.NewToken()
	token.Cancel()

	p := proofing.New(nil)
	_, err := p.DetectNonEnglish(outputDir, filepath.Join(outputDir, "log"), nil, token)
	if !services.IsCancelled(err) {
		t.Fatalf("err = %v, want cancelled", err)
	}
}

func TestProofFinalCopiesSmallAndImageOnlyFiles(t *testing.T) {
	outputDir := t.TempDir()
	write(t, filepath.Join(outputDir, "translated_small.txt"), "short")
	imageOnly := "<<<IMAGE_START>>>\n<image src=\"cover.png\" />\n<<<IMAGE_END>>>\n" + strings.Repeat(" ", 1100)
	write(t, filepath.Join(outputDir, "translated_cover - image.txt"), imageOnly)
	big := strings.Repeat("A translated paragraph with real content.\n", 60)
	write(t, filepath.Join(outputDir, "translated_ch1.txt"), big)

	engine := &scriptedEngine{response: providers.Succeeded("gemini", "gemini-2.0-flash", "proofed text", 5)}
	p := proofing.New(engine)
	if err := p.ProofFinal(context.Background(), outputDir, nil, control.NewToken()); err != nil {
		t.Fatalf("ProofFinal: %v", err)
	}

	proofedDir := filepath.Join(outputDir, proofing.ProofedDirName)
	small, err := os.ReadFile(filepath.Join(proofedDir, "translated_small.txt"))
	if err != nil {
		t.Fatalf("small copy: %v", err)
	}
	if string(small) != "short" {
		t.Fatalf("small = %q", small)
	}
	proofed, err := os.ReadFile(filepath.Join(proofedDir, "translated_ch1.txt"))
	if err != nil {
		t.Fatalf("proofed: %v", err)
	}
	if string(proofed) != "proofed text" {
		t.Fatalf("proofed = %q", proofed)
	}
	if len(engine.requests) != 1 {
		t.Fatalf("engine calls = %d, want 1", len(engine.requests))
	}
}

func TestProofFinalContinuesPastFailures(t *testing.T) {
	outputDir := t.TempDir()
	big := strings.Repeat("A translated paragraph with real content.\n", 60)
	write(t, filepath.Join(outputDir, "translated_ch1.txt"), big)

	engine := &scriptedEngine{response: providers.Failure("Multiple", "", "All providers failed. Last error: x")}
	p := proofing.New(engine)
	if err := p.ProofFinal(context.Background(), outputDir, nil, control.NewToken()); err != nil {
		t.Fatalf("ProofFinal: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, proofing.ProofedDirName, "translated_ch1.txt")); !os.IsNotExist(err) {
		t.Fatal("failed file should not be written")
	}
}

func TestValidateImageBlocks(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	// Image chapter whose blocks were dropped by translation.
	write(t, filepath.Join(inputDir, "ch2 - image.txt"),
		"intro line\n<<<IMAGE_START>>>\n<image src=\"a.png\" />\n<<<IMAGE_END>>>\n")
	write(t, filepath.Join(outputDir, "translated_ch2 - image.txt"), "intro line\n")

	// Plain chapter that picked up stray image markup.
	write(t, filepath.Join(inputDir, "ch3.txt"), "plain text\n")
	write(t, filepath.Join(outputDir, "translated_ch3.txt"),
		"plain text\n<<<IMAGE_START>>>\n<image src=\"b.png\" />\n<<<IMAGE_END>>>\n")

	p := proofing.New(nil)
	p.ValidateImageBlocks(inputDir, outputDir)

	patched, err := os.ReadFile(filepath.Join(outputDir, "translated_ch2 - image.txt"))
	if err != nil {
		t.Fatalf("read patched: %v", err)
	}
	if !strings.Contains(string(patched), "<<<IMAGE_START>>>") {
		t.Fatalf("blocks not restored: %q", patched)
	}

	cleaned, err := os.ReadFile(filepath.Join(outputDir, "translated_ch3.txt"))
	if err != nil {
		t.Fatalf("read cleaned: %v", err)
	}
	if strings.Contains(string(cleaned), "IMAGE_START") {
		t.Fatalf("blocks not removed: %q", cleaned)
	}
}

func TestProofGlossaryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vol1.txt")
	write(t, path, "== Character Names ==\nアキラ => Akira\n")

	engine := &scriptedEngine{response: providers.Succeeded("gemini", "gemini-2.0-flash",
		"== Character Names ==\nアキラ => Akira\n\n== Context Terms ==\n", 3)}
	p := proofing.New(engine)
	if err := p.ProofGlossaryFile(context.Background(), path, control.NewToken()); err != nil {
		t.Fatalf("ProofGlossaryFile: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "== Context Terms ==") {
		t.Fatalf("glossary not rewritten: %q", data)
	}

	// Missing files are not an error.
	if err := p.ProofGlossaryFile(context.Background(), filepath.Join(dir, "absent.txt"), control.NewToken()); err != nil {
		t.Fatalf("missing file: %v", err)
	}
}
