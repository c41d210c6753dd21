package util

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mpapenbr/racesim/pkg/session"
)

// PrintStandings writes the standings as aligned table
func PrintStandings(w io.Writer, title string, standings []session.Standing) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, title)
	fmt.Fprintln(tw, "Pos\t#\tDriver\tTeam\tLap\tGap\tBest\tStatus\tTire\tStops\t")
	for i := range standings {
		s := &standings[i]
		best := "-"
		if s.BestLap > 0 {
			best = fmt.Sprintf("%.2fs", s.BestLap)
		}
		tire := fmt.Sprintf("%s %.0f%%", s.Compound, s.TirePct)
		if pred, ok := s.PredictedTirePct.Get(); ok {
			tire += fmt.Sprintf(" (%.0f%%)", pred)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%d\t\n",
			s.Pos, s.Number, s.Driver, s.Team, s.Lap, s.Gap, best, s.Status, tire, s.Stops)
	}
	return tw.Flush()
}

// StandingsPrinter prints every n-th tick of a snapshot stream.
// Snapshots may be skipped by the broadcast, so a table is printed as soon
// as n ticks have passed since the last one.
type StandingsPrinter struct {
	w     io.Writer
	every int
	last  int
}

func NewStandingsPrinter(w io.Writer, every int) *StandingsPrinter {
	return &StandingsPrinter{w: w, every: every}
}

// Print reports whether a table was written
func (p *StandingsPrinter) Print(snap *session.Snapshot) bool {
	if p.every <= 0 || snap.Tick-p.last < p.every {
		return false
	}
	p.last = snap.Tick
	title := fmt.Sprintf("%s tick %d (%s)", snap.Kind, snap.Tick, snap.Phase)
	if snap.Laps > 0 {
		title += fmt.Sprintf(" lap %d/%d", snap.Lap, snap.Laps)
	}
	if snap.SafetyCar != "" {
		title += " safety car " + snap.SafetyCar
	}
	//nolint:errcheck // console output
	PrintStandings(p.w, title, snap.Standings)
	for _, a := range snap.Announcements[:min(1, len(snap.Announcements))] {
		fmt.Fprintf(p.w, ">> %s\n", a.Text)
	}
	return true
}
