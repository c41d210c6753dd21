package session

import (
	"context"
	"sync"
	"time"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/car"
	"github.com/mpapenbr/racesim/pkg/utils/broadcast"
)

// Command is an operator request handled between two ticks
type Command int

const (
	CmdDeploySafetyCar Command = iota
	CmdStop
)

func (c Command) String() string {
	switch c {
	case CmdDeploySafetyCar:
		return "deploySafetyCar"
	case CmdStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Snapshot is the renderable state of a session after a tick
type Snapshot struct {
	SessionID     string         `json:"sessionId"`
	Kind          string         `json:"kind"` // race or qualifying
	Tick          int            `json:"tick"`
	Phase         string         `json:"phase"`
	Lap           int            `json:"lap,omitempty"`
	Laps          int            `json:"laps,omitempty"`
	TimeLeft      float64        `json:"timeLeft,omitempty"`  // seconds
	SafetyCar     string         `json:"safetyCar,omitempty"` // deployed or ending
	Cars          []car.View     `json:"cars"`
	Standings     []Standing     `json:"standings"`
	Announcements []Announcement `json:"announcements"`
}

type ticker interface {
	Tick() *Snapshot
	Over() bool
	handle(cmd Command)
}

// runner drives a session in (scaled) real time and publishes the snapshots
type runner struct {
	name     string
	speed    float64
	tickRate int
	source   chan *Snapshot
	once     sync.Once
	bcast    broadcast.BroadcastServer[*Snapshot]
	l        *log.Logger
}

func newRunner(name string, tickRate int, o *options) *runner {
	return &runner{
		name:     name,
		speed:    o.speed,
		tickRate: tickRate,
		source:   make(chan *Snapshot),
		l:        o.l,
	}
}

// Broadcast returns the server publishing the snapshots of Run.
// It has to be called before Run and must not be closed while Run is active.
func (r *runner) Broadcast() broadcast.BroadcastServer[*Snapshot] {
	r.once.Do(func() {
		r.bcast = broadcast.NewBroadcastServer(r.name, r.source,
			broadcast.WithLogger[*Snapshot](r.l.Named("broadcast")))
	})
	return r.bcast
}

func (r *runner) interval() time.Duration {
	if r.speed <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / (float64(r.tickRate) * r.speed))
}

// run ticks s until it is over, the context is done or a stop command is
// received. The snapshot source is closed afterwards.
//
//nolint:cyclop // event loop
func (r *runner) run(ctx context.Context, s ticker, inbox <-chan Command) error {
	defer close(r.source)
	var tick <-chan time.Time
	if d := r.interval(); d > 0 {
		t := time.NewTicker(d)
		defer t.Stop()
		tick = t.C
	}
	r.l.Info("session started", log.String("session", r.name), log.Float64("speed", r.speed))
	for !s.Over() {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case cmd := <-inbox:
				if r.command(s, cmd) {
					return nil
				}
				continue
			case <-tick:
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case cmd := <-inbox:
				if r.command(s, cmd) {
					return nil
				}
			default:
			}
		}
		if err := r.publish(ctx, s.Tick()); err != nil {
			return err
		}
	}
	r.l.Info("session over", log.String("session", r.name))
	return nil
}

// command handles cmd and reports whether the run should stop
func (r *runner) command(s ticker, cmd Command) bool {
	r.l.Info("command received", log.String("command", cmd.String()))
	if cmd == CmdStop {
		return true
	}
	s.handle(cmd)
	return false
}

func (r *runner) publish(ctx context.Context, snap *Snapshot) error {
	if r.bcast == nil {
		return nil
	}
	select {
	case r.source <- snap:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
