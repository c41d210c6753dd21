package race

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/cmd/util"
	"github.com/mpapenbr/racesim/pkg/config"
	"github.com/mpapenbr/racesim/pkg/predict"
	"github.com/mpapenbr/racesim/pkg/session"
)

func NewRaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "race",
		Short: "runs a race session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRace(cmd.Context(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&config.Laps, "laps", 0,
		"race distance in laps (0: value of the tuning)")
	cmd.Flags().BoolVar(&config.QualifyFirst, "qualify", false,
		"run a qualifying session first and start from its grid")
	cmd.Flags().StringVar(&config.PredictInterval, "predict-interval", "1s",
		"wall clock interval between strategy predictions of a car")
	cmd.Flags().IntVar(&config.PredictWorkers, "predict-workers", 2,
		"number of strategy prediction workers (0 disables predictions)")
	return cmd
}

//nolint:funlen // setup
func runRace(ctx context.Context, w io.Writer) error {
	if _, err := util.SetupLogger(os.Stderr); err != nil {
		return err
	}
	defer util.Sync()
	if telemetry := util.SetupTelemetry(ctx); telemetry != nil {
		defer telemetry.Shutdown()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	in, err := util.LoadInputs(true)
	if err != nil {
		return err
	}
	// flag, then track, then tuning
	laps := config.Laps
	if laps == 0 {
		laps = in.Track.MaxLaps
	}
	opts := util.SessionOptions()
	if laps > 0 {
		opts = append(opts, session.WithLaps(laps))
	}

	if config.QualifyFirst {
		q, qErr := session.NewQualifying(in.Track.Track, in.Roster, in.Tuning, opts...)
		if qErr != nil {
			return qErr
		}
		if qErr = util.RunSession(ctx, q, nil, w); qErr != nil {
			return qErr
		}
		if qErr = util.PrintStandings(w, "Qualifying result", q.Results()); qErr != nil {
			return qErr
		}
		opts = append(opts, session.WithGrid(q.StartingGrid()))
	}

	if config.PredictWorkers > 0 {
		interval, parseErr := time.ParseDuration(config.PredictInterval)
		if parseErr != nil {
			log.Warn("Invalid predict interval. Using 1s", log.ErrorField(parseErr))
			interval = time.Second
		}
		p := predict.New(in.Track.Track, in.Tuning,
			predict.WithWorkers(config.PredictWorkers),
			predict.WithInterval(interval),
			predict.WithTracer(otel.Tracer("rsim.predict")),
			predict.WithMeter(otel.Meter("rsim.predict")),
			predict.WithLogger(log.Default().Named("predict")))
		defer p.Close()
		opts = append(opts, session.WithPredictor(p))
	}

	r, err := session.NewRace(in.Track.Track, in.Roster, in.Tuning,
		append(opts, session.WithMeter(otel.Meter("rsim.session")))...)
	if err != nil {
		return err
	}
	log.Info("Starting race",
		log.String("track", in.Track.Name),
		log.String("session", r.ID()))

	inbox := make(chan session.Command)
	stopSignals := util.SignalCommands(ctx, inbox)
	defer stopSignals()
	if err = util.RunSession(ctx, r, inbox, w); err != nil {
		return err
	}
	title := fmt.Sprintf("Race result (%s)", r.Phase())
	return util.PrintStandings(w, title, r.Results())
}
