package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const flushTimeout = 2 * time.Second

// NATSPublisher announces concluded matches on <subject>.<session_id>.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	if subject == "" {
		subject = "trileague.matches"
	}
	return &NATSPublisher{nc: nc, subject: subject}
}

func (p *NATSPublisher) Subject(sessionID string) string {
	return p.subject + "." + sessionID
}

func (p *NATSPublisher) RecordMatch(ctx context.Context, rec MatchRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal match record: %w", err)
	}
	msg := nats.NewMsg(p.Subject(rec.SessionID))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, rec.ID)
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish match record: %w", err)
	}
	if err := p.flush(ctx); err != nil {
		return fmt.Errorf("flush match record: %w", err)
	}
	return nil
}

func (p *NATSPublisher) flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); ok {
		return p.nc.FlushWithContext(ctx)
	}
	return p.nc.FlushTimeout(flushTimeout)
}
