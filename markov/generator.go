package markov

import (
	"math/rand/v2"

	"go-harmony/debug"
	"go-harmony/melody"
)

// Train builds an order-k chain from a melody. A rolling buffer of order+1
// events, prefilled with Start, slides over the melody: its first order
// notes are the context and its last is the event that followed.
func Train(m *melody.Melody, order int, downbeatTol float64) *Chain {
	c := NewChain(order)
	order = c.Order()

	buf := make([]melody.Note, order+1)
	for i := range buf {
		buf[i] = melody.Start
	}
	for _, ev := range m.Events() {
		copy(buf, buf[1:])
		buf[order] = ev.Note
		c.record(NewContext(buf[:order]...), ev, downbeatTol)
	}
	return c
}

// Generator plays an endless melody from a trained chain. It is used by a
// single goroutine.
type Generator struct {
	chain  *Chain
	window Context
	rng    *rand.Rand

	resets int
}

// NewGenerator trains a chain of the given order on m and returns a
// generator positioned at the start of a phrase.
func NewGenerator(m *melody.Melody, order int, downbeatTol float64, rng *rand.Rand) *Generator {
	return NewGeneratorFromChain(Train(m, order, downbeatTol), rng)
}

// NewGeneratorFromChain wraps an already trained chain.
func NewGeneratorFromChain(c *Chain, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{chain: c, window: StartContext(c.Order()), rng: rng}
}

// Chain returns the underlying chain.
func (g *Generator) Chain() *Chain {
	return g.chain
}

// Resets counts how often the window had to be reset to all-Start.
func (g *Generator) Resets() int {
	return g.resets
}

// Reset returns to the start of a phrase.
func (g *Generator) Reset() {
	g.window = StartContext(g.chain.Order())
}

// Next returns the next event. When no suffix of the window has data the
// window is reset to all-Start and sampling is retried once; if that fails
// too the chain is empty and ErrExhausted is returned.
func (g *Generator) Next() (melody.Event, error) {
	ev, _, ok := g.chain.SampleWithFallback(g.window, g.rng)
	if !ok {
		g.resets++
		debug.Log("markov", "no continuation for %s, resetting context", g.window)
		g.Reset()
		ev, _, ok = g.chain.SampleWithFallback(g.window, g.rng)
		if !ok {
			return melody.Event{}, ErrExhausted
		}
	}
	g.window = g.window.Push(ev.Note)
	return ev, nil
}
