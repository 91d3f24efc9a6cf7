package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/mail"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/phishing-filter/internal/config"
	"github.com/mikey/phishing-filter/internal/core"
	"github.com/mikey/phishing-filter/internal/ports"
)

const (
	analysisErrorHeader = "X-Phishing-Analysis-Error"
	defaultPrefix       = "[**PHISHING**] "
	analysisTimeout     = 10 * time.Second
)

// PostfixFilter implements a Postfix content filter. Messages arrive over
// SMTP, are classified, get verdict headers and are relayed back to Postfix.
type PostfixFilter struct {
	analyzer ports.EmailAnalyzer
	logger   *zap.Logger
	cfg      config.ServerConfig

	mu       sync.Mutex
	server   *smtp.Server
	listener net.Listener
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(analyzer ports.EmailAnalyzer, logger *zap.Logger, cfg config.ServerConfig) *PostfixFilter {
	if cfg.SubjectPrefix == "" && cfg.ModifySubject {
		cfg.SubjectPrefix = defaultPrefix
	}

	return &PostfixFilter{
		analyzer: analyzer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Start binds the listen address and serves SMTP in the background
func (f *PostfixFilter) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	server := smtp.NewServer(&smtpBackend{filter: f})
	server.Addr = f.cfg.ListenAddress
	server.Domain = "localhost"
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxMessageBytes = 30 * 1024 * 1024
	server.MaxRecipients = 50
	server.AllowInsecureAuth = true

	l, err := net.Listen("tcp", f.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.cfg.ListenAddress, err)
	}
	f.server = server
	f.listener = l

	f.logger.Info("Postfix filter starting", zap.String("address", l.Addr().String()))

	go func() {
		if err := server.Serve(l); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound listen address, or nil before Start
func (f *PostfixFilter) Addr() net.Addr {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listener == nil {
		return nil
	}
	return f.listener.Addr()
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail classifies a parsed email without going through SMTP
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.ClassificationResult, error) {
	return f.analyzer.AnalyzeEmail(ctx, email)
}

// Filter classifies a raw message and returns the message to relay. Phishing
// is rejected with a 550 reply when blocking is enabled. Analysis failures
// never block delivery; the message is passed on with an error header.
func (f *PostfixFilter) Filter(ctx context.Context, sender string, recipients []string, raw []byte) ([]byte, *core.ClassificationResult, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse email message: %w", err)
	}

	email, err := emailFromMessage(msg, sender, recipients)
	if err != nil {
		return nil, nil, err
	}

	result, analysisErr := f.analyzer.AnalyzeEmail(ctx, email)
	if analysisErr != nil {
		f.logger.Error("Failed to analyze email",
			zap.Error(analysisErr),
			zap.String("sender", email.From))
	}

	if analysisErr == nil && result.IsPhishing && f.cfg.BlockPhishing {
		f.logger.Info("Rejecting phishing email",
			zap.String("from", email.From),
			zap.Float64("phishing_probability", result.PhishingProbability),
			zap.Float64("confidence", result.Confidence))
		return nil, result, &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as phishing (score: %.2f)", result.PhishingProbability),
		}
	}

	return f.rewriteMessage(raw, email.Subject, result, analysisErr), result, nil
}

// rewriteMessage prepends the verdict headers and, for phishing, prefixes the
// subject. The body is passed through byte for byte.
func (f *PostfixFilter) rewriteMessage(raw []byte, subject string, result *core.ClassificationResult, analysisErr error) []byte {
	header, body := splitMessage(raw)
	eol := "\n"
	if bytes.Contains(header, []byte("\r\n")) || len(header) == 0 {
		eol = "\r\n"
	}

	var out bytes.Buffer
	for _, h := range verdictHeaders(f.cfg, result, analysisErr) {
		fmt.Fprintf(&out, "%s: %s%s", h.name, h.value, eol)
	}

	// Verdict headers set upstream are dropped so they cannot be spoofed
	drop := map[string]bool{
		strings.ToLower(f.cfg.StatusHeader):     true,
		strings.ToLower(f.cfg.ScoreHeader):      true,
		strings.ToLower(f.cfg.ConfidenceHeader): true,
		strings.ToLower(analysisErrorHeader):    true,
	}

	newSubject := ""
	if analysisErr == nil && result.IsPhishing && f.cfg.ModifySubject && f.cfg.SubjectPrefix != "" &&
		!strings.HasPrefix(subject, f.cfg.SubjectPrefix) {
		newSubject = encodeHeaderValue(f.cfg.SubjectPrefix + subject)
		drop["subject"] = true
	}

	writeHeaders(&out, header, drop)
	if newSubject != "" {
		fmt.Fprintf(&out, "Subject: %s%s", newSubject, eol)
	}
	out.WriteString(eol)
	out.Write(body)

	return out.Bytes()
}

type headerField struct {
	name  string
	value string
}

// verdictHeaders returns the header fields recording a classification outcome
func verdictHeaders(cfg config.ServerConfig, result *core.ClassificationResult, analysisErr error) []headerField {
	if analysisErr != nil {
		return []headerField{
			{cfg.StatusHeader, "UNKNOWN"},
			{analysisErrorHeader, sanitizeHeaderValue(analysisErr.Error())},
		}
	}
	return []headerField{
		{cfg.StatusHeader, result.Label},
		{cfg.ScoreHeader, fmt.Sprintf("%.4f", result.PhishingProbability)},
		{cfg.ConfidenceHeader, fmt.Sprintf("%.4f", result.Confidence)},
	}
}

// splitMessage separates the header block, without the blank line, from the body
func splitMessage(raw []byte) ([]byte, []byte) {
	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx >= 0 {
		return raw[:idx+2], raw[idx+4:]
	}
	if idx := bytes.Index(raw, []byte("\n\n")); idx >= 0 {
		return raw[:idx+1], raw[idx+2:]
	}
	return raw, nil
}

// writeHeaders copies header fields in their original order, skipping the
// fields named in drop together with their folded continuation lines.
func writeHeaders(out *bytes.Buffer, header []byte, drop map[string]bool) {
	skipping := false
	for len(header) > 0 {
		line := header
		if idx := bytes.IndexByte(header, '\n'); idx >= 0 {
			line = header[:idx+1]
		}
		header = header[len(line):]

		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			if !skipping {
				out.Write(line)
			}
			continue
		}

		name := line
		if colon := bytes.IndexByte(line, ':'); colon >= 0 {
			name = line[:colon]
		}
		skipping = drop[strings.ToLower(strings.TrimSpace(string(name)))]
		if !skipping {
			out.Write(line)
		}
	}
}

func encodeHeaderValue(value string) string {
	for i := 0; i < len(value); i++ {
		if value[i] >= utf8.RuneSelf {
			return mime.QEncoding.Encode("utf-8", value)
		}
	}
	return value
}

func sanitizeHeaderValue(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}

// sendToPostfix relays the processed message back to Postfix
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	postfixAddr := f.cfg.PostfixRelay()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", postfixAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
		} else {
			recipientOK = true
		}
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	// The message is already accepted at this point
	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	modified, result, err := s.filter.Filter(ctx, s.sender, s.recipients, raw)
	if err != nil {
		return err
	}

	if s.filter.cfg.PostfixEnabled {
		if err := s.filter.sendToPostfix(s.sender, s.recipients, modified); err != nil {
			s.filter.logger.Error("Failed to send email back to Postfix",
				zap.Error(err),
				zap.String("sender", s.sender))
			return err
		}
	} else {
		s.filter.logger.Warn("Postfix forwarding disabled, message dropped after classification")
	}

	fields := []zap.Field{zap.String("from", s.sender), zap.Int("recipients", len(s.recipients))}
	if result != nil {
		fields = append(fields,
			zap.String("label", result.Label),
			zap.Float64("phishing_probability", result.PhishingProbability),
			zap.String("source", result.Source))
	}
	s.filter.logger.Info("Processed email", fields...)

	return nil
}

func (s *smtpSession) Logout() error {
	return nil
}

var _ ports.EmailFilter = (*PostfixFilter)(nil)
