package filter

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/mikey/phishing-filter/internal/core"
)

func TestMilterDecide(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		analyzer    *stubAnalyzer
		block       bool
		wantReject  bool
		wantHeaders map[string]string
	}{
		{
			name:     "legitimate",
			analyzer: &stubAnalyzer{result: legitimateVerdict()},
			wantHeaders: map[string]string{
				"X-Phishing-Status":     "LEGITIMATE",
				"X-Phishing-Score":      "0.2000",
				"X-Phishing-Confidence": "0.8000",
			},
		},
		{
			name:     "phishing tagged",
			analyzer: &stubAnalyzer{result: phishingVerdict()},
			wantHeaders: map[string]string{
				"X-Phishing-Status": "PHISHING",
				"X-Phishing-Score":  "0.9300",
			},
		},
		{
			name:       "phishing blocked",
			analyzer:   &stubAnalyzer{result: phishingVerdict()},
			block:      true,
			wantReject: true,
		},
		{
			name:     "analysis error",
			analyzer: &stubAnalyzer{err: core.ErrModelNotFound},
			block:    true,
			wantHeaders: map[string]string{
				"X-Phishing-Status": "UNKNOWN",
				analysisErrorHeader: "trained model not found",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testServerConfig()
			cfg.BlockPhishing = tt.block
			f := NewMilterFilter(tt.analyzer, zaptest.NewLogger(t), cfg)

			d, err := f.decide(ctx, "<bounce@bank.example>", []string{"<victim@example.com>"}, []byte(rawMessage))
			if err != nil {
				t.Fatalf("decide failed: %v", err)
			}

			if (d.rejectReason != "") != tt.wantReject {
				t.Errorf("rejectReason = %q, want reject %v", d.rejectReason, tt.wantReject)
			}
			if tt.wantReject && !strings.HasPrefix(d.rejectReason, "5.7.1 ") {
				t.Errorf("rejectReason %q lacks an enhanced status code", d.rejectReason)
			}

			got := make(map[string]string)
			for _, h := range d.headers {
				got[h.name] = h.value
			}
			for name, want := range tt.wantHeaders {
				if got[name] != want {
					t.Errorf("header %s = %q, want %q", name, got[name], want)
				}
			}

			if email := tt.analyzer.seen[0]; email.From != "<bounce@bank.example>" || email.Subject != "Verify your account" {
				t.Errorf("analyzed email from=%q subject=%q", email.From, email.Subject)
			}
		})
	}
}

func TestMilterDecideRejectsGarbage(t *testing.T) {
	f := NewMilterFilter(&stubAnalyzer{result: legitimateVerdict()}, zaptest.NewLogger(t), testServerConfig())
	if _, err := f.decide(context.Background(), "", nil, []byte("not a message")); err == nil {
		t.Error("expected a parse error")
	}
}
