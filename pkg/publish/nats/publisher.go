// Package nats publishes session snapshots to a NATS server
package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/session"
	"github.com/mpapenbr/racesim/pkg/utils/broadcast"
)

// Conn is the part of *nats.Conn used by the publisher
type Conn interface {
	Publish(subj string, data []byte) error
}

type (
	Option    func(*Publisher)
	Publisher struct {
		conn     Conn
		owned    *nats.Conn
		subject  string
		lastText string
		l        *log.Logger
	}
)

// WithSubject sets the subject prefix. Snapshots are published to
// <prefix>.<sessionId>.state, new announcements to
// <prefix>.<sessionId>.announcement
func WithSubject(prefix string) Option {
	return func(p *Publisher) {
		p.subject = prefix
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Publisher) {
		p.l = l
	}
}

func New(conn Conn, opts ...Option) *Publisher {
	ret := &Publisher{
		conn:    conn,
		subject: "rsim",
		l:       log.Default().Named("nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Connect creates a publisher with its own connection to url.
// Close releases the connection.
func Connect(url string, opts ...Option) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("rsim"))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	ret := New(conn, opts...)
	ret.owned = conn
	ret.l.Info("connected to nats", log.String("url", conn.ConnectedUrlRedacted()))
	return ret, nil
}

func (p *Publisher) Close() {
	if p.owned == nil {
		return
	}
	if err := p.owned.Drain(); err != nil {
		p.l.Warn("error draining connection", log.ErrorField(err))
	}
}

func (p *Publisher) stateSubject(snap *session.Snapshot) string {
	return fmt.Sprintf("%s.%s.state", p.subject, snap.SessionID)
}

func (p *Publisher) announcementSubject(snap *session.Snapshot) string {
	return fmt.Sprintf("%s.%s.announcement", p.subject, snap.SessionID)
}

// Publish sends the snapshot and, if the displayed announcement changed,
// the announcement
func (p *Publisher) Publish(snap *session.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err = p.conn.Publish(p.stateSubject(snap), data); err != nil {
		return err
	}
	text := ""
	if len(snap.Announcements) > 0 {
		text = snap.Announcements[0].Text
	}
	if text != "" && text != p.lastText {
		if err = p.conn.Publish(p.announcementSubject(snap), []byte(text)); err != nil {
			return err
		}
	}
	p.lastText = text
	return nil
}

// Serve subscribes to bs and publishes every snapshot in the background
// until the broadcast ends or ctx is done. The returned channel is closed
// when serving stopped. Publish errors are logged, they do not stop serving.
func (p *Publisher) Serve(ctx context.Context, bs broadcast.BroadcastServer[*session.Snapshot]) <-chan struct{} {
	ch := bs.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer bs.CancelSubscription(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-ch:
				if !ok {
					p.l.Debug("snapshot channel closed")
					return
				}
				if err := p.Publish(snap); err != nil {
					p.l.Warn("error publishing snapshot", log.Int("tick", snap.Tick), log.ErrorField(err))
				}
			}
		}
	}()
	return done
}
