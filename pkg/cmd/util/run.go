package util

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/config"
	natspub "github.com/mpapenbr/racesim/pkg/publish/nats"
	"github.com/mpapenbr/racesim/pkg/session"
	"github.com/mpapenbr/racesim/pkg/utils"
	"github.com/mpapenbr/racesim/pkg/utils/broadcast"
)

// Runnable is a session that can be driven by RunSession
type Runnable interface {
	Run(ctx context.Context, inbox <-chan session.Command) error
	Broadcast() broadcast.BroadcastServer[*session.Snapshot]
}

// RunSession runs s with the configured outputs (console leaderboard, NATS).
// It returns after Run returned and all outputs are done.
func RunSession(ctx context.Context, s Runnable, inbox <-chan session.Command, w io.Writer) error {
	var pub *natspub.Publisher
	if config.NatsURL != "" {
		if err := waitForNats(ctx); err != nil {
			return err
		}
		var err error
		pub, err = natspub.Connect(config.NatsURL,
			natspub.WithSubject(config.NatsSubject),
			natspub.WithLogger(log.Default().Named("nats")))
		if err != nil {
			return err
		}
		defer pub.Close()
	}

	var done []<-chan struct{}
	if config.PrintEvery > 0 || pub != nil {
		bs := s.Broadcast()
		if config.PrintEvery > 0 {
			done = append(done, printStandings(bs, NewStandingsPrinter(w, config.PrintEvery)))
		}
		if pub != nil {
			done = append(done, pub.Serve(ctx, bs))
		}
	}
	err := s.Run(ctx, inbox)
	for _, d := range done {
		<-d
	}
	return err
}

func waitForNats(ctx context.Context) error {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 15s", log.ErrorField(err))
		timeout = 15 * time.Second
	}
	addr := utils.ExtractFromNatsURL(config.NatsURL)
	if addr == "" {
		return fmt.Errorf("invalid nats url %q", config.NatsURL)
	}
	return utils.WaitForTCP(ctx, addr, timeout)
}

func printStandings(bs broadcast.BroadcastServer[*session.Snapshot], p *StandingsPrinter) <-chan struct{} {
	ch := bs.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range ch {
			p.Print(snap)
		}
	}()
	return done
}

// SignalCommands forwards operator signals as session commands:
// SIGUSR1 deploys the safety car. The returned function stops forwarding.
func SignalCommands(ctx context.Context, inbox chan<- session.Command) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGUSR1)
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigChan:
				log.Debug("Got signal", log.Any("signal", sig))
				select {
				case inbox <- session.CmdDeploySafetyCar:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return func() {
		signal.Stop(sigChan)
		cancel()
	}
}
