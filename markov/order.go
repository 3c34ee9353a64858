package markov

import (
	"context"
	"math/rand/v2"

	"go-harmony/debug"
	"go-harmony/melody"
)

// Order search defaults.
const (
	DefaultSamples          = 100
	DefaultLengthMultiplier = 5
	TooSimilarLimit         = 3
)

// Options tune SelectOrder. Zero values take the defaults.
type Options struct {
	Samples          int
	LengthMultiplier int
	MaxOrder         int // 0 means the melody length
	DownbeatTol      float64
	Rng              *rand.Rand
}

// OrderResult is the averaged scores of one tried order.
type OrderResult struct {
	Order  int
	Scores Scores
	Merit  float64

	TooSimilar bool
	TooRandom  bool
}

// Verdict is a short label for logs and reports.
func (r OrderResult) Verdict() string {
	switch {
	case r.TooSimilar && r.TooRandom:
		return "too similar and too random"
	case r.TooSimilar:
		return "too similar"
	case r.TooRandom:
		return "too random"
	}
	return "ok"
}

// Report is the outcome of an order search.
type Report struct {
	Best      int
	BestMerit float64
	Orders    []OrderResult
}

// GenerateSamples plays count sequences of up to length notes from c,
// starting each from an all-Start window and feeding every sampled note
// back into it. A sequence ends early at the first context without data.
func GenerateSamples(c *Chain, count, length int, rng *rand.Rand) [][]melody.Note {
	out := make([][]melody.Note, 0, count)
	for i := 0; i < count; i++ {
		window := StartContext(c.Order())
		seq := make([]melody.Note, 0, length)
		for j := 0; j < length; j++ {
			ev, ok := c.Sample(window, rng)
			if !ok {
				break
			}
			window = window.Push(ev.Note)
			seq = append(seq, ev.Note)
		}
		out = append(out, seq)
	}
	return out
}

// SelectOrder tries orders 1, 2, ... and returns the one whose generated
// material scores best, i.e. closest to half-similar to m on every
// measure. The search stops after TooSimilarLimit consecutive orders that
// only copy the original, at MaxOrder, or when ctx is done.
func SelectOrder(ctx context.Context, m *melody.Melody, opts Options) (Report, error) {
	if opts.Samples <= 0 {
		opts.Samples = DefaultSamples
	}
	if opts.LengthMultiplier <= 0 {
		opts.LengthMultiplier = DefaultLengthMultiplier
	}
	if opts.MaxOrder <= 0 {
		opts.MaxOrder = max(m.Len(), 1)
	}
	if opts.DownbeatTol <= 0 {
		opts.DownbeatTol = melody.DefaultDownbeatTolerance
	}
	rng := opts.Rng
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	original := m.Notes()
	length := m.Len() * opts.LengthMultiplier

	var rep Report
	similarInARow := 0
	for order := 1; order <= opts.MaxOrder; order++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		chain := Train(m, order, opts.DownbeatTol)
		samples := GenerateSamples(chain, opts.Samples, length, rng)

		var sum Scores
		for _, s := range samples {
			sum = sum.add(Compare(original, s))
		}
		avg := sum.scale(1 / float64(len(samples)))

		res := OrderResult{
			Order:      order,
			Scores:     avg,
			Merit:      avg.Merit(),
			TooSimilar: avg.TooSimilar(),
			TooRandom:  avg.TooRandom(),
		}
		rep.Orders = append(rep.Orders, res)
		debug.Log("markov", "order %d: exact=%.3f edit=%.3f 3g=%.3f 4g=%.3f 5g=%.3f merit=%.3f (%s)",
			order, avg.Exact, avg.Edit, avg.Gram3, avg.Gram4, avg.Gram5, res.Merit, res.Verdict())

		if res.TooSimilar {
			similarInARow++
		} else {
			similarInARow = 0
		}
		if similarInARow == TooSimilarLimit {
			break
		}

		if res.Merit > rep.BestMerit {
			rep.BestMerit = res.Merit
			rep.Best = order
		}
	}
	if rep.Best == 0 {
		rep.Best = 1
	}
	return rep, nil
}
