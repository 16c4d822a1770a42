package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	// maxExtractedRunes bounds the text handed to the evaluator.
	maxExtractedRunes = 3000
	// maxExtractedBytes covers maxExtractedRunes of four-byte runes.
	maxExtractedBytes = maxExtractedRunes * utf8.UTFMax
)

var textMIMEPrefixes = []string{
	"text/",
	"application/json",
	"application/xml",
	"application/javascript",
	"application/pdf",
}

var textFileExtensions = []string{".txt", ".md", ".docx", ".doc"}

// FileHandle describes an uploaded file without committing to where its bytes live.
type FileHandle struct {
	Name     string
	Size     int64
	MIMEType string
	Open     func() (io.ReadCloser, error)
}

// FileHandleFromMultipart adapts a multipart upload.
func FileHandleFromMultipart(file *multipart.FileHeader) FileHandle {
	return FileHandle{
		Name:     file.Filename,
		Size:     file.Size,
		MIMEType: file.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return file.Open()
		},
	}
}

// Extraction is the evaluator input derived from a file.
type Extraction struct {
	Text string
	// Placeholder is set when Text describes the file instead of quoting it.
	Placeholder bool
}

// ContentExtractor turns uploaded files into bounded text for evaluation.
type ContentExtractor interface {
	Extract(ctx context.Context, file FileHandle) Extraction
}

type contentExtractor struct {
	logger zerolog.Logger
}

// NewContentExtractor constructs the extractor.
func NewContentExtractor(logger zerolog.Logger) ContentExtractor {
	return &contentExtractor{
		logger: logger.With().Str("component", "content_extractor").Logger(),
	}
}

// Extract never fails: unreadable files produce a descriptive placeholder.
func (e *contentExtractor) Extract(ctx context.Context, file FileHandle) Extraction {
	if !isTextExtractable(file) {
		return Extraction{
			Text:        fmt.Sprintf("[Uploaded file: %s, Size: %sKB, Type: %s]", file.Name, kilobytes(file.Size), file.MIMEType),
			Placeholder: true,
		}
	}

	text, err := readBoundedText(ctx, file)
	if err != nil {
		e.logger.Warn().Err(err).Str("file", file.Name).Msg("failed to read submission content")
		mimeType := file.MIMEType
		if mimeType == "" {
			mimeType = "unknown"
		}
		return Extraction{
			Text:        fmt.Sprintf("[File: %s, Size: %sKB, Type: %s]", file.Name, kilobytes(file.Size), mimeType),
			Placeholder: true,
		}
	}

	return Extraction{Text: text}
}

func isTextExtractable(file FileHandle) bool {
	if file.MIMEType == "" {
		return true
	}
	for _, prefix := range textMIMEPrefixes {
		if strings.HasPrefix(file.MIMEType, prefix) {
			return true
		}
	}
	name := strings.ToLower(file.Name)
	for _, ext := range textFileExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func readBoundedText(ctx context.Context, file FileHandle) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if file.Open == nil {
		return "", fmt.Errorf("file %s has no content", file.Name)
	}

	reader, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, maxExtractedBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", file.Name, err)
	}

	return truncateRunes(strings.ToValidUTF8(string(raw), string(utf8.RuneError)), maxExtractedRunes), nil
}

func truncateRunes(text string, limit int) string {
	count := 0
	for index := range text {
		if count == limit {
			return text[:index]
		}
		count++
	}
	return text
}

func kilobytes(size int64) string {
	return fmt.Sprintf("%.1f", float64(size)/1024)
}
