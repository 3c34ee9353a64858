package commands

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"go-harmony/markov"
	"go-harmony/melody"
	"go-harmony/theory"
)

var (
	benchLengths  string
	benchSamples  int
	benchMaxOrder int
	benchSeed     uint64
	benchOut      string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Time the order search on random melodies",
	Long: `Time the Markov order search on random C major melodies of
increasing length and print one CSV row per melody:

  measures,events,order,ms

With --out the rows are appended to a file, so runs on different machines
or builds can be collected in one table.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lengths, err := parseLengths(benchLengths)
		if err != nil {
			return err
		}

		var dst io.Writer = cmd.OutOrStdout()
		header := true
		if benchOut != "" {
			fh, err := os.OpenFile(benchOut, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return err
			}
			defer fh.Close()
			if info, err := fh.Stat(); err == nil && info.Size() > 0 {
				header = false
			}
			dst = fh
		}

		w := csv.NewWriter(dst)
		if header {
			w.Write([]string{"measures", "events", "order", "ms"})
		}
		for _, n := range lengths {
			rng := rand.New(rand.NewPCG(benchSeed, uint64(n)))
			m := randomMelody(n, melody.DefaultTimeSignature(), rng)

			start := time.Now()
			rep, err := markov.SelectOrder(cmd.Context(), m, markov.Options{
				Samples:  benchSamples,
				MaxOrder: benchMaxOrder,
				Rng:      rng,
			})
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			w.Write([]string{
				strconv.Itoa(n),
				strconv.Itoa(m.Len()),
				strconv.Itoa(rep.Best),
				strconv.FormatInt(elapsed.Milliseconds(), 10),
			})
			w.Flush()
		}
		return w.Error()
	},
}

func init() {
	f := benchCmd.Flags()
	f.StringVar(&benchLengths, "lengths", "2,5,10,25,100", "comma separated melody lengths in measures")
	f.IntVar(&benchSamples, "samples", markov.DefaultSamples, "samples per order")
	f.IntVar(&benchMaxOrder, "max-order", 0, "highest order to try (0 tries up to the melody length)")
	f.Uint64Var(&benchSeed, "seed", 1, "random seed")
	f.StringVarP(&benchOut, "out", "o", "", "append rows to this CSV file instead of printing them")
	rootCmd.AddCommand(benchCmd)
}

func parseLengths(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("bad melody length %q", f)
		}
		out = append(out, n)
	}
	return out, nil
}

// randomMelody is measures of eighth notes from the C major scale, with an
// occasional rest.
func randomMelody(measures int, ts melody.TimeSignature, rng *rand.Rand) *melody.Melody {
	scale := theory.BuildScale(0, theory.Ionian)
	step := ts.MsPerBeat / 2
	perMeasure := int(ts.MsPerMeasure / step)

	b := &melody.Builder{}
	for i := 0; i < measures; i++ {
		for j := 0; j < perMeasure; j++ {
			n := melody.Note(60 + scale[rng.IntN(len(scale))])
			if rng.IntN(10) == 0 {
				n = melody.Pause
			}
			b.Append(melody.FixedEvent(n, melody.MTP{Measure: i + 1, Offset: float64(j) * step}, step))
		}
	}
	return b.Build()
}
