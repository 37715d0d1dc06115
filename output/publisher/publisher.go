// Package publisher hands filing records to downstream consumers over NATS.
//
// Each record is published as JSON on "<prefix>.<cik>.<form token>", for
// example "edgar.filings.0001318605.10k". When a record carries an
// accession number it is also sent as the Nats-Msg-Id header so a
// JetStream stream bound to the subject deduplicates republished filings.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/c360studio/edgarbridge/filing"
	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "edgar.filings"

// ErrInvalidSubject is returned for prefixes or tokens that would produce a
// wildcard or malformed subject.
var ErrInvalidSubject = errors.New("invalid subject")

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// Publisher publishes filing records.
type Publisher struct {
	conn   Conn
	prefix string
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a Publisher over an established connection.
func New(conn Conn, prefix string, logger *slog.Logger) (*Publisher, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	for _, tok := range strings.Split(prefix, ".") {
		if err := validToken(tok); err != nil {
			return nil, fmt.Errorf("subject prefix %q: %w", prefix, err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, prefix: prefix, logger: logger}, nil
}

// Connect dials natsURL and returns a Publisher that owns the connection.
func Connect(ctx context.Context, natsURL, prefix string, logger *slog.Logger) (*Publisher, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before connect: %w", err)
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("edgarbridge"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.Timeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	p, err := New(nc, prefix, logger)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

// Subject returns the subject for ref.
func (p *Publisher) Subject(ref filing.Reference) (string, error) {
	if err := validToken(ref.CIK); err != nil {
		return "", fmt.Errorf("cik %q: %w", ref.CIK, err)
	}
	form := ref.Form.Token()
	if err := validToken(form); err != nil {
		return "", fmt.Errorf("form type %q: %w", ref.Form, err)
	}
	return p.prefix + "." + ref.CIK + "." + form, nil
}

// Publish sends rec on the subject for ref and waits for the server to
// acknowledge the flush.
func (p *Publisher) Publish(ctx context.Context, ref filing.Reference, rec filing.Recorder) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nats.ErrConnectionClosed
	}

	subject, err := p.Subject(ref)
	if err != nil {
		return err
	}

	record := rec.Record()
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	if accession, ok := record["accession_number"].(string); ok && accession != "" {
		msg.Header.Set(nats.MsgIdHdr, accession)
	}

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}

	p.logger.Debug("Published filing record", "subject", subject, "bytes", len(data))
	return nil
}

// PublishFiling publishes f under its own CIK and form type.
func (p *Publisher) PublishFiling(ctx context.Context, f *filing.SecFiling) error {
	return p.Publish(ctx, filing.Reference{CIK: f.CIK, Form: f.Form, Year: f.Year, Quarter: f.Quarter}, f)
}

// PublishHistory publishes every filing in order and stops at the first
// failure.
func (p *Publisher) PublishHistory(ctx context.Context, history filing.History) error {
	for i, f := range history {
		if err := p.PublishFiling(ctx, f); err != nil {
			return fmt.Errorf("filing %d: %w", i, err)
		}
	}
	return nil
}

// Close drains the connection. Calling Close more than once is safe.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.conn.Drain()
}

func validToken(tok string) error {
	if tok == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidSubject)
	}
	if strings.ContainsAny(tok, ".*> \t\r\n") {
		return fmt.Errorf("%w: token %q contains a reserved character", ErrInvalidSubject, tok)
	}
	return nil
}
