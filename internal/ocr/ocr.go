// Package ocr replaces embedded image tags with text extracted from the image
// files through the Gemini vision endpoint. Tags whose images cannot be read
// or transcribed are left untouched.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/AZAnthonyN/GeminiTL/internal/logging"
	"github.com/AZAnthonyN/GeminiTL/internal/providers"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel       = "gemini-2.0-flash"
	defaultHTTPTimeout = 120 * time.Second
)

const transcribeInstructions = "Transcribe all readable text in this image exactly as written. " +
	"Output only the transcription. If the image contains no text, output nothing."

var (
	imgTagPattern = regexp.MustCompile(`<img[^>]*>`)
	srcPattern    = regexp.MustCompile(`src\s*=\s*["']([^"']+)["']`)
)

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Extractor performs OCR through the Gemini vision API.
type Extractor struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the extractor.
type Option func(*Extractor)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Extractor) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// WithLogger sets the extractor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New constructs an Extractor from gemini provider settings.
func New(settings providers.Settings, opts ...Option) *Extractor {
	timeout := defaultHTTPTimeout
	if seconds := settings.Int("timeout_seconds", 0); seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}
	e := &Extractor{
		apiKey:     settings.String("api_key", ""),
		baseURL:    strings.TrimRight(settings.String("base_url", defaultBaseURL), "/"),
		model:      settings.String("model", defaultModel),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ReplaceImageTags replaces every <img> tag in content with text transcribed
// from the referenced file under imagesDir. A tag stays as-is when its image
// is missing, unreadable, or produces no transcription.
func (e *Extractor) ReplaceImageTags(ctx context.Context, content, imagesDir string) string {
	return imgTagPattern.ReplaceAllStringFunc(content, func(tag string) string {
		src := srcPattern.FindStringSubmatch(tag)
		if src == nil {
			return tag
		}
		name := filepath.Base(src[1])
		text, err := e.ExtractFile(ctx, filepath.Join(imagesDir, name))
		if err != nil {
			e.logger.Warn("ocr failed, keeping image tag",
				logging.String(logging.FieldFile, name), logging.Error(err))
			return tag
		}
		if text == "" {
			e.logger.Debug("image has no readable text", logging.String(logging.FieldFile, name))
			return tag
		}
		e.logger.Info("image tag replaced with extracted text",
			logging.String(logging.FieldFile, name), logging.Int("bytes", len(text)))
		return text
	})
}

// ExtractFile transcribes one image file.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	mimeType, ok := imageMIMETypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return e.transcribe(ctx, mimeType, data)
}

type visionRequest struct {
	Contents []visionContent `json:"contents"`
}

type visionContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []visionPart `json:"parts"`
}

type visionPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type visionResponse struct {
	Candidates []struct {
		Content visionContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *Extractor) transcribe(ctx context.Context, mimeType string, image []byte) (string, error) {
	payload := visionRequest{Contents: []visionContent{{
		Role: "user",
		Parts: []visionPart{
			{Text: transcribeInstructions},
			{InlineData: &inlineData{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
		},
	}}}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		e.baseURL, url.PathEscape(e.model), url.QueryEscape(e.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var decoded visionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("api error %d: %s", decoded.Error.Code, strings.TrimSpace(decoded.Error.Message))
	}
	var builder strings.Builder
	for _, candidate := range decoded.Candidates {
		for _, p := range candidate.Content.Parts {
			builder.WriteString(p.Text)
		}
		if builder.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(builder.String()), nil
}
