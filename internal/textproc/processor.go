package textproc

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TextProcessor prepares raw input before it reaches the classifier
type TextProcessor struct {
	logger  *zap.Logger
	maxSize int
}

// NewTextProcessor creates a new TextProcessor. A maxSize of zero disables truncation.
func NewTextProcessor(logger *zap.Logger, maxSize int) *TextProcessor {
	return &TextProcessor{
		logger:  logger,
		maxSize: maxSize,
	}
}

// TruncateText safely truncates text to the configured maximum size
// and ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string) string {
	if tp.maxSize <= 0 || len(text) <= tp.maxSize {
		return text
	}

	truncated := text[:tp.maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", tp.maxSize))

	return truncated
}

// SanitizeUTF8 drops invalid UTF-8 sequences
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")
	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// Prepare truncates and sanitizes text in one operation
func (tp *TextProcessor) Prepare(text string) string {
	return tp.SanitizeUTF8(tp.TruncateText(text))
}
