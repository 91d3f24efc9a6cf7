package filter

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/ports"
)

const previewLength = 100

var banner = strings.Repeat("=", 50)

// CliFilter classifies parsed messages and writes a human readable report
type CliFilter struct {
	analyzer ports.EmailAnalyzer
	logger   *zap.Logger
	out      io.Writer
	verbose  bool
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(analyzer ports.EmailAnalyzer, logger *zap.Logger, out io.Writer, verbose bool) *CliFilter {
	return &CliFilter{
		analyzer: analyzer,
		logger:   logger,
		out:      out,
		verbose:  verbose,
	}
}

// ProcessEmail processes an email and displays the results
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.ClassificationResult, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.From))

	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", email.From)
	fmt.Fprintf(f.out, "To: %s\n", strings.Join(email.To, ", "))
	fmt.Fprintf(f.out, "Subject: %s\n", email.Subject)
	fmt.Fprintf(f.out, "Body length: %d bytes\n", len(email.Body))

	startTime := time.Now()
	result, err := f.analyzer.AnalyzeEmail(ctx, email)
	if err != nil {
		f.logger.Error("Failed to analyze email", zap.Error(err))
		return nil, err
	}

	preview := ""
	if f.verbose {
		preview = email.Text()
	}
	PrintResult(f.out, result, preview)

	if f.verbose {
		fmt.Fprintf(f.out, "Source: %s\n", result.Source)
		fmt.Fprintf(f.out, "Processing time: %v\n", time.Since(startTime))
	}

	return result, nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}

// PrintResult writes the verdict, probabilities and advice for a classified
// text. The preview is omitted when text is empty.
func PrintResult(w io.Writer, result *core.ClassificationResult, text string) {
	fmt.Fprintf(w, "\n%s\n", banner)
	fmt.Fprintln(w, "CLASSIFICATION RESULT")
	fmt.Fprintln(w, banner)

	if text != "" {
		fmt.Fprintf(w, "\nEmail preview: %s\n", Preview(text))
	}

	fmt.Fprintf(w, "\nVerdict: %s\n", result.Label)
	fmt.Fprintf(w, "Confidence: %.1f%%\n", result.Confidence*100)
	fmt.Fprintln(w, "\nProbability breakdown:")
	fmt.Fprintf(w, "  - Phishing: %.1f%%\n", result.PhishingProbability*100)
	fmt.Fprintf(w, "  - Legitimate: %.1f%%\n", result.LegitimateProbability*100)

	if result.IsPhishing {
		fmt.Fprintln(w, "\nWARNING: This email appears to be a phishing attempt!")
		fmt.Fprintln(w, "   Do not click any links or provide personal information.")
	} else {
		fmt.Fprintln(w, "\nThis email appears to be legitimate.")
	}

	fmt.Fprintln(w, banner)
}

// Preview shortens text to its first 100 characters
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) > previewLength {
		return string(runes[:previewLength]) + "..."
	}
	return text
}

var _ ports.EmailFilter = (*CliFilter)(nil)
