package filter

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/mail"
	"sync"
	"sync/atomic"
	"time"

	"github.com/d--j/go-milter"
	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/ports"
)

// MilterFilter implements a Milter filter for phishing detection. Verdict
// headers are added in place; phishing is rejected when blocking is enabled.
type MilterFilter struct {
	analyzer ports.EmailAnalyzer
	logger   *zap.Logger
	cfg      config.ServerConfig

	mu       sync.Mutex
	server   *milter.Server
	listener net.Listener
	stopped  atomic.Bool
}

// NewMilterFilter creates a new Milter filter
func NewMilterFilter(analyzer ports.EmailAnalyzer, logger *zap.Logger, cfg config.ServerConfig) *MilterFilter {
	return &MilterFilter{
		analyzer: analyzer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Start starts the Milter filter service
func (f *MilterFilter) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	server := milter.NewServer(
		milter.WithProtocol(milter.OptNoConnect|milter.OptNoHelo),
		milter.WithAction(milter.OptAddHeader),
		milter.WithReadTimeout(30*time.Second),
		milter.WithWriteTimeout(30*time.Second),
		milter.WithMilter(func() milter.Milter {
			return &milterSession{filter: f}
		}),
	)

	ln, err := net.Listen("tcp", f.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.cfg.ListenAddress, err)
	}
	f.server = server
	f.listener = ln

	f.logger.Info("Milter filter started", zap.String("address", ln.Addr().String()))

	go func() {
		if err := server.Serve(ln); err != nil && !f.stopped.Load() {
			f.logger.Error("Milter server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound listen address, or nil before Start
func (f *MilterFilter) Addr() net.Addr {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listener == nil {
		return nil
	}
	return f.listener.Addr()
}

// Stop stops the Milter filter service
func (f *MilterFilter) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.server != nil {
		f.stopped.Store(true)
		return f.server.Close()
	}
	return nil
}

// ProcessEmail classifies a parsed email without going through the milter protocol
func (f *MilterFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.ClassificationResult, error) {
	return f.analyzer.AnalyzeEmail(ctx, email)
}

// milterDecision is the outcome for one message
type milterDecision struct {
	headers []headerField
	// rejectReason is set when the message must be refused
	rejectReason string
	result       *core.ClassificationResult
}

// decide classifies a reassembled message. Analysis failures never reject.
func (f *MilterFilter) decide(ctx context.Context, sender string, recipients []string, raw []byte) (*milterDecision, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email message: %w", err)
	}
	email, err := emailFromMessage(msg, sender, recipients)
	if err != nil {
		return nil, err
	}

	result, analysisErr := f.analyzer.AnalyzeEmail(ctx, email)
	if analysisErr != nil {
		f.logger.Error("Failed to analyze email",
			zap.Error(analysisErr),
			zap.String("sender", email.From))
		return &milterDecision{headers: verdictHeaders(f.cfg, nil, analysisErr)}, nil
	}

	d := &milterDecision{result: result}
	if result.IsPhishing && f.cfg.BlockPhishing {
		d.rejectReason = fmt.Sprintf("5.7.1 Rejected as phishing (score: %.2f)", result.PhishingProbability)
		return d, nil
	}
	d.headers = verdictHeaders(f.cfg, result, nil)
	return d, nil
}

// milterSession reassembles one message at a time from milter callbacks
type milterSession struct {
	milter.NoOpMilter
	filter *MilterFilter

	sender     string
	recipients []string
	raw        bytes.Buffer
}

func (s *milterSession) MailFrom(from string, esmtpArgs string, m milter.Modifier) (*milter.Response, error) {
	s.sender = from
	s.recipients = nil
	s.raw.Reset()
	return milter.RespContinue, nil
}

func (s *milterSession) RcptTo(rcptTo string, esmtpArgs string, m milter.Modifier) (*milter.Response, error) {
	s.recipients = append(s.recipients, rcptTo)
	return milter.RespContinue, nil
}

func (s *milterSession) Header(name string, value string, m milter.Modifier) (*milter.Response, error) {
	fmt.Fprintf(&s.raw, "%s: %s\r\n", name, value)
	return milter.RespContinue, nil
}

func (s *milterSession) Headers(m milter.Modifier) (*milter.Response, error) {
	s.raw.WriteString("\r\n")
	return milter.RespContinue, nil
}

func (s *milterSession) BodyChunk(chunk []byte, m milter.Modifier) (*milter.Response, error) {
	s.raw.Write(chunk)
	return milter.RespContinue, nil
}

func (s *milterSession) EndOfMessage(m milter.Modifier) (*milter.Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	d, err := s.filter.decide(ctx, s.sender, s.recipients, s.raw.Bytes())
	s.raw.Reset()
	if err != nil {
		s.filter.logger.Warn("Accepting unparseable message", zap.Error(err), zap.String("from", s.sender))
		return milter.RespContinue, nil
	}

	if d.rejectReason != "" {
		s.filter.logger.Info("Rejecting phishing email",
			zap.String("from", s.sender),
			zap.Float64("phishing_probability", d.result.PhishingProbability))
		return milter.RejectWithCodeAndReason(550, d.rejectReason)
	}

	for _, h := range d.headers {
		if err := m.AddHeader(h.name, h.value); err != nil {
			return milter.RespTempFail, fmt.Errorf("failed to add header %s: %w", h.name, err)
		}
	}

	if d.result != nil {
		s.filter.logger.Info("Processed email",
			zap.String("from", s.sender),
			zap.String("label", d.result.Label),
			zap.Float64("phishing_probability", d.result.PhishingProbability),
			zap.String("source", d.result.Source))
	}
	return milter.RespContinue, nil
}

func (s *milterSession) Abort(m milter.Modifier) error {
	s.raw.Reset()
	return nil
}

var _ ports.EmailFilter = (*MilterFilter)(nil)
