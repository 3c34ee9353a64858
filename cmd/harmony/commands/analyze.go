package commands

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"go-harmony/markov"

	"go-harmony/theory"
)

var (
	analyzeNoCache bool
	analyzeTop     int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.mid>",
	Short: "Inspect a MIDI file and pick its Markov order",
	Long: `Inspect a MIDI file the way the engine sees it: meter, tempo, the
extracted melody, its key and the Markov order search.

The search result is cached by melody and settings, so a second run is
instant. Use --no-cache to search again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		path := args[0]
		file, m, err := loadMelody(path)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		ts := file.Timing
		fmt.Fprintf(out, "file:     %s\n", path)
		fmt.Fprintf(out, "meter:    %d/%d at %.0f BPM (%d ticks per quarter)\n", ts.Num, ts.Denom, ts.BPM, ts.TicksPerQuarter)
		fmt.Fprintf(out, "length:   %.1fs, %d tracks, %d events, shortest note %.0fms\n",
			file.LengthMs()/1000, len(file.Tracks), m.Len(), m.ShortestNoteLength())

		key := m.Key()
		if key.Found {
			fmt.Fprintf(out, "key:      %s major (%d candidates)\n", theory.NoteNames[key.Best], len(key.Candidates))
		} else {
			fmt.Fprintln(out, "key:      none found, using C")
		}
		fmt.Fprint(out, "notes:   ")
		for i, st := range key.Stats {
			if i == analyzeTop {
				break
			}
			fmt.Fprintf(out, " %s %.1f%%", theory.NoteNames[st.PitchClass], st.Percent)
		}
		fmt.Fprintln(out)

		rep, hit, err := searchOrder(cmd.Context(), cfg, m, path, analyzeNoCache)
		if err != nil {
			return err
		}
		if hit {
			fmt.Fprintln(out, "\norder search (cached):")
		} else {
			fmt.Fprintln(out, "\norder search:")
		}
		fmt.Fprintln(out, orderTable(rep))
		fmt.Fprintf(out, "best order: %d\n", rep.Best)
		return nil
	},
}

// orderTable renders the search report, the chosen order in bold.
func orderTable(rep markov.Report) string {
	cell := lipgloss.NewStyle().Padding(0, 1)
	best := cell.Bold(true)
	header := cell.Foreground(lipgloss.Color("8"))

	rows := make([][]string, 0, len(rep.Orders))
	for _, o := range rep.Orders {
		rows = append(rows, []string{
			strconv.Itoa(o.Order),
			fmt.Sprintf("%.3f", o.Merit),
			fmt.Sprintf("%.3f", o.Scores.Exact),
			fmt.Sprintf("%.3f", o.Scores.Edit),
			o.Verdict(),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("order", "merit", "exact", "edit", "verdict").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case row >= 0 && row < len(rep.Orders) && rep.Orders[row].Order == rep.Best:
				return best
			}
			return cell
		}).
		String()
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "search again instead of using the cached result")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", 5, "pitch classes to list")
	rootCmd.AddCommand(analyzeCmd)
}
