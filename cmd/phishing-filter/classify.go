package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/adapters/filter"
	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/di"
	"github.com/mikey/phishing-filter/internal/pipeline"
	"github.com/mikey/phishing-filter/internal/ports"
)

var (
	interactive  bool
	explainTerms int
	rawMessage   bool
)

var demoEmails = []string{
	"URGENT: Your account has been compromised! Click here to verify immediately.",
	"Hi team, just a reminder about our meeting tomorrow at 10 AM.",
}

var classifyCmd = &cobra.Command{
	Use:   "classify [email_text... | email_file]",
	Short: "Classify an email as phishing or legitimate",
	Long: `Classify email text given as arguments, read from a file, or entered
interactively. Without arguments a short demo is run on two examples.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := di.BuildCLIContainer(&flags)
		if err != nil {
			return fmt.Errorf("failed to build dependency container: %w", err)
		}

		return container.Invoke(func(
			cfg *config.Config,
			logger *zap.Logger,
			service *core.PhishingDetectorService,
			emailFilter ports.EmailFilter,
			repo core.ModelRepository,
			cache core.CacheRepository,
		) error {
			defer closeResources(logger, repo, cache)

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			model, err := service.Model(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Model loaded from %s\n", cfg.ModelKey())

			if explainTerms > 0 {
				printTopTerms(out, model, explainTerms)
			}

			switch {
			case interactive:
				return runInteractive(ctx, cmd.InOrStdin(), out, service)
			case len(args) == 0:
				return runDemo(ctx, out, service)
			case len(args) == 1 && isFile(args[0]):
				return classifyFile(ctx, out, args[0], service, emailFilter)
			default:
				return classifyText(ctx, out, strings.Join(args, " "), service)
			}
		})
	},
}

func init() {
	classifyCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Classify emails entered on standard input")
	classifyCmd.Flags().IntVar(&explainTerms, "explain", 0, "Show the N terms most indicative of each class")
	classifyCmd.Flags().BoolVar(&rawMessage, "eml", false, "Treat the file as a raw RFC 5322 message")
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func classifyText(ctx context.Context, out io.Writer, text string, service *core.PhishingDetectorService) error {
	result, err := service.ClassifyText(ctx, text)
	if err != nil {
		return err
	}
	filter.PrintResult(out, result, text)
	return nil
}

func classifyFile(ctx context.Context, out io.Writer, path string, service *core.PhishingDetectorService, emailFilter ports.EmailFilter) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read email file: %w", err)
	}

	if !rawMessage {
		return classifyText(ctx, out, string(data), service)
	}

	email, err := filter.ParseEmail(bytes.NewReader(data))
	if err != nil {
		return err
	}
	_, err = emailFilter.ProcessEmail(ctx, email)
	return err
}

func runDemo(ctx context.Context, out io.Writer, service *core.PhishingDetectorService) error {
	fmt.Fprintln(out, "\nUsage:")
	fmt.Fprintln(out, "  phishing-filter classify <email_text>")
	fmt.Fprintln(out, "  phishing-filter classify <path_to_email_file>")
	fmt.Fprintln(out, "  phishing-filter classify --interactive")
	fmt.Fprintln(out, "\nExample:")
	fmt.Fprintln(out, `  phishing-filter classify "Click here to claim your prize!"`)
	fmt.Fprintln(out, "\n\nRunning quick demo...")

	for _, text := range demoEmails {
		if err := classifyText(ctx, out, text, service); err != nil {
			return err
		}
	}
	return nil
}

// runInteractive reads emails from in until "quit" or end of input. An
// email may span several lines and is terminated by an empty line.
func runInteractive(ctx context.Context, in io.Reader, out io.Writer, service *core.PhishingDetectorService) error {
	fmt.Fprintf(out, "\n%s\nPHISHING EMAIL DETECTOR - Interactive Mode\n%s\n", banner, banner)
	fmt.Fprintln(out, "\nEnter email text to classify (type 'quit' to exit):")
	fmt.Fprintln(out, "(For multi-line input, enter an empty line when done)")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for {
		fmt.Fprintf(out, "%s\nEnter email text:\n", strings.Repeat("-", 30))

		var lines []string
		done := false
		for {
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("failed to read input: %w", err)
				}
				done = true
				break
			}
			line := scanner.Text()
			if strings.EqualFold(strings.TrimSpace(line), "quit") {
				fmt.Fprintln(out, "\nGoodbye!")
				return nil
			}
			if line == "" {
				if len(lines) > 0 {
					break
				}
				continue
			}
			lines = append(lines, line)
		}

		if text := strings.Join(lines, "\n"); strings.TrimSpace(text) != "" {
			if err := classifyText(ctx, out, text, service); err != nil {
				return err
			}
		}
		if done {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func printTopTerms(out io.Writer, model *core.TrainedModel, n int) {
	fmt.Fprintf(out, "\nVocabulary size: %d terms\n", model.VocabularySize())
	for _, class := range []int{core.ClassPhishing, core.ClassLegitimate} {
		name := core.LabelLegitimate
		if class == core.ClassPhishing {
			name = core.LabelPhishing
		}
		fmt.Fprintf(out, "\nTop %s terms:\n", name)
		for _, tw := range pipeline.TopTerms(model, class, n) {
			fmt.Fprintf(out, "  %-30s %7.3f\n", tw.Term, tw.LogOdds)
		}
	}
}
