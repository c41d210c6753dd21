package plan

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racesim/log"
	"github.com/mpapenbr/racesim/pkg/cmd/util"
	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/strategy"
	"github.com/mpapenbr/racesim/pkg/track"
)

type planArgs struct {
	laps     int
	compound string // empty: the planner chooses the starting compound
	tirePct  float64
	style    string
	stops    int
}

var args planArgs

func NewPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "prints the pit strategy for a race situation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := util.SetupLogger(os.Stderr); err != nil {
				return err
			}
			defer util.Sync()
			in, err := util.LoadInputs(false)
			if err != nil {
				return err
			}
			return printPlan(cmd.OutOrStdout(), in.Track.Track, in.Tuning, args)
		},
	}
	cmd.Flags().IntVar(&args.laps, "laps", 0, "laps left (0: race distance of the tuning)")
	cmd.Flags().StringVar(&args.compound, "compound", "",
		"compound currently fitted (empty: choose the best starting compound)")
	cmd.Flags().Float64Var(&args.tirePct, "tire-pct", 100, "tire condition in percent")
	cmd.Flags().StringVar(&args.style, "style", "balanced",
		"strategy style (balanced, conservative, aggressive)")
	cmd.Flags().IntVar(&args.stops, "stops", 0, "completed pit stops")
	return cmd
}

func request(t *model.Tuning, a planArgs) (strategy.Request, error) {
	style, err := model.ParseStyle(a.style)
	if err != nil {
		return strategy.Request{}, err
	}
	req := strategy.Request{
		LapsLeft: a.laps,
		TirePct:  a.tirePct,
		Style:    style,
		Stops:    a.stops,
	}
	if req.LapsLeft <= 0 {
		req.LapsLeft = t.Laps
	}
	if a.compound == "" {
		req.FreeStart = true
		req.TirePct = 100
		return req, nil
	}
	if req.Current, err = t.ParseCompound(a.compound); err != nil {
		return strategy.Request{}, err
	}
	return req, nil
}

func printPlan(w io.Writer, tr *track.Track, t *model.Tuning, a planArgs) error {
	req, err := request(t, a)
	if err != nil {
		return err
	}
	p := strategy.New(t, strategy.EstimateLapTicks(tr, t),
		strategy.WithLogger(log.Default().Named("strategy")))
	plan := p.Plan(req)
	log.Debug("plan computed",
		log.Int("laps", req.LapsLeft),
		log.Bool("fallback", plan.Fallback),
		log.Duration("estimated", plan.EstimatedTime()))

	fmt.Fprintf(w, "Lap time estimate: %.2fs\n", p.LapTicks()/float64(t.TickRate))
	fmt.Fprintln(w, plan.Result.Output())
	fmt.Fprintf(w, "Stops: %d, estimated time: %s", plan.Result.Stops(), plan.EstimatedTime().Round(time.Millisecond))
	if plan.Fallback {
		fmt.Fprint(w, " (fallback)")
	}
	_, err = fmt.Fprintln(w)
	return err
}
