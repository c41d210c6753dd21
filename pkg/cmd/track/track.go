package track

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racesim/pkg/cmd/util"
	"github.com/mpapenbr/racesim/pkg/loader"
	"github.com/mpapenbr/racesim/pkg/model"
	"github.com/mpapenbr/racesim/pkg/strategy"
	"github.com/mpapenbr/racesim/pkg/track"
)

// sampling step for the corner profile
const profileStep = 1.0

func NewTrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "prints geometry statistics of a track",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := util.SetupLogger(os.Stderr); err != nil {
				return err
			}
			defer util.Sync()
			in, err := util.LoadInputs(false)
			if err != nil {
				return err
			}
			return printTrack(cmd.OutOrStdout(), in.Track, in.Tuning)
		},
	}
	return cmd
}

func printTrack(w io.Writer, def *loader.TrackDefinition, t *model.Tuning) error {
	tr := def.Track
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", def.Name)
	fmt.Fprintf(tw, "Length:\t%.1f\n", tr.Length())
	fmt.Fprintf(tw, "Start/finish:\t%.1f\n", tr.StartFinish())
	if def.MaxLaps > 0 {
		fmt.Fprintf(tw, "Laps:\t%d\n", def.MaxLaps)
	}
	if tr.HasPitLane() {
		fmt.Fprintf(tw, "Pit lane:\t%.1f (entrance %.1f, exit %.1f)\n",
			tr.PitLane().Length(), tr.PitEntrance(), tr.PitExit())
	} else {
		fmt.Fprintf(tw, "Pit lane:\tnone\n")
	}
	lapTicks := strategy.EstimateLapTicks(tr, t)
	fmt.Fprintf(tw, "Lap estimate:\t%.0f ticks (%.2fs)\n", lapTicks, lapTicks/float64(t.TickRate))

	profile := tr.CornerProfile(profileStep)
	for _, c := range []track.CornerClass{track.Straight, track.FastCorner, track.MediumCorner, track.SlowCorner} {
		fmt.Fprintf(tw, "%s:\t%.1f\t%.1f%%\n", c, profile[c], 100*profile[c]/tr.Length())
	}
	return tw.Flush()
}
