package qualify

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/cmd/util"
	"github.com/mpapenbr/racesim/pkg/session"
)

func NewQualifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qualify",
		Short: "runs a qualifying session and prints the starting grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQualifying(cmd.Context(), cmd.OutOrStdout())
		},
	}
	return cmd
}

func runQualifying(ctx context.Context, w io.Writer) error {
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
	q, err := session.NewQualifying(in.Track.Track, in.Roster, in.Tuning, util.SessionOptions()...)
	if err != nil {
		return err
	}
	log.Info("Starting qualifying",
		log.String("track", in.Track.Name),
		log.String("session", q.ID()))
	if err = util.RunSession(ctx, q, nil, w); err != nil {
		return err
	}
	if err = util.PrintStandings(w, "Qualifying result", q.Results()); err != nil {
		return err
	}
	numbers := lo.Map(q.StartingGrid(), func(idx, _ int) int { return q.Cars()[idx].Entry().Driver.Number })
	_, err = fmt.Fprintf(w, "Starting grid: %v\n", numbers)
	return err
}
