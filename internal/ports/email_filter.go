package ports

import (
	"context"

	"github.com/mikey/phishing-filter/internal/core"
)

// EmailAnalyzer classifies a parsed email message
type EmailAnalyzer interface {
	AnalyzeEmail(ctx context.Context, email *core.Email) (*core.ClassificationResult, error)
}

// EmailFilter defines the interface for email filtering
type EmailFilter interface {
	// ProcessEmail processes an email and returns the classification
	ProcessEmail(ctx context.Context, email *core.Email) (*core.ClassificationResult, error)

	// Start starts the email filter service
	Start() error

	// Stop stops the email filter service
	Stop() error
}

var _ EmailAnalyzer = (*core.PhishingDetectorService)(nil)
