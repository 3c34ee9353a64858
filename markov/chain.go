// Package markov learns a melody as a variable-order Markov chain, samples
// continuations from it and searches for the order that keeps generated
// material between copy and noise.
package markov

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"go-harmony/melody"
)

// Errors returned by the chain and generator.
var (
	ErrContextLength = errors.New("markov: context length does not match chain order")
	ErrExhausted     = errors.New("markov: no continuation even from an empty context")
)

// Context is a window of note values used as a lookup key. It is a value
// type: two contexts with the same notes are equal.
type Context string

const noteBias = 3

// NewContext builds a context from notes, oldest first.
func NewContext(notes ...melody.Note) Context {
	b := make([]byte, len(notes))
	for i, n := range notes {
		b[i] = byte(int(n) + noteBias)
	}
	return Context(b)
}

// StartContext is a window of order Start tokens.
func StartContext(order int) Context {
	notes := make([]melody.Note, order)
	for i := range notes {
		notes[i] = melody.Start
	}
	return NewContext(notes...)
}

// Len is the number of notes in the context.
func (c Context) Len() int {
	return len(c)
}

// Suffix returns the newest k notes.
func (c Context) Suffix(k int) Context {
	if k >= len(c) {
		return c
	}
	return c[len(c)-k:]
}

// Push drops the oldest note and appends n.
func (c Context) Push(n melody.Note) Context {
	if len(c) == 0 {
		return c
	}
	return c[1:] + NewContext(n)
}

// Notes decodes the context.
func (c Context) Notes() []melody.Note {
	out := make([]melody.Note, len(c))
	for i := 0; i < len(c); i++ {
		out[i] = melody.Note(int(c[i]) - noteBias)
	}
	return out
}

func (c Context) String() string {
	parts := make([]string, 0, len(c))
	for _, n := range c.Notes() {
		parts = append(parts, n.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// TransitionData is what was observed after a context for one next note.
type TransitionData struct {
	Note          melody.Note
	Count         int
	Durations     []float64
	DownbeatCount int
}

// Transitions are all next notes seen after one context, in first-seen
// order.
type Transitions struct {
	Entries []TransitionData
	Total   int
	index   map[melody.Note]int
}

func (t *Transitions) record(next melody.Event, downbeat bool) {
	if t.index == nil {
		t.index = make(map[melody.Note]int)
	}
	i, ok := t.index[next.Note]
	if !ok {
		i = len(t.Entries)
		t.index[next.Note] = i
		t.Entries = append(t.Entries, TransitionData{Note: next.Note})
	}
	e := &t.Entries[i]
	e.Count++
	e.Durations = append(e.Durations, next.Duration)
	if downbeat {
		e.DownbeatCount++
	}
	t.Total++
}

// Get returns the data for one next note.
func (t *Transitions) Get(n melody.Note) (TransitionData, bool) {
	i, ok := t.index[n]
	if !ok {
		return TransitionData{}, false
	}
	return t.Entries[i], true
}

func (t *Transitions) draw(rng *rand.Rand) melody.Event {
	r := rng.IntN(t.Total)
	pick := &t.Entries[len(t.Entries)-1]
	for i := range t.Entries {
		if r < t.Entries[i].Count {
			pick = &t.Entries[i]
			break
		}
		r -= t.Entries[i].Count
	}
	dur := 0.0
	if len(pick.Durations) > 0 {
		dur = pick.Durations[rng.IntN(len(pick.Durations))]
	}
	return melody.FixedEvent(pick.Note, melody.MTP{}, dur)
}

// Chain is a Markov chain of a fixed order. Alongside the full-order table
// it keeps one table per shorter suffix length so generation can back off
// to a shorter context. Every table only holds contexts of its own length.
// A chain is written during training and read-only afterwards.
type Chain struct {
	order  int
	tables []map[Context]*Transitions // tables[k] holds length-k contexts
}

// NewChain returns an empty chain. Orders below 1 become 1.
func NewChain(order int) *Chain {
	if order < 1 {
		order = 1
	}
	c := &Chain{order: order, tables: make([]map[Context]*Transitions, order+1)}
	for k := 1; k <= order; k++ {
		c.tables[k] = make(map[Context]*Transitions)
	}
	return c
}

// Order is the chain's lookbehind length.
func (c *Chain) Order() int {
	return c.order
}

// Contexts is the number of distinct full-order contexts.
func (c *Chain) Contexts() int {
	return len(c.tables[c.order])
}

// Train records next after ctx. Events whose measure offset lies within
// downbeatTol ms of the measure start count as downbeats.
func (c *Chain) Train(ctx Context, next melody.Event, downbeatTol float64) error {
	if ctx.Len() != c.order {
		return fmt.Errorf("%w: got %d, want %d", ErrContextLength, ctx.Len(), c.order)
	}
	c.record(ctx, next, downbeatTol)
	return nil
}

// record adds one observation. ctx must have exactly order notes.
func (c *Chain) record(ctx Context, next melody.Event, downbeatTol float64) {
	downbeat := next.Kind == melody.Fixed && melody.OnDownbeat(next.MTP.Offset, downbeatTol)
	for k := 1; k <= c.order; k++ {
		key := ctx.Suffix(k)
		t, ok := c.tables[k][key]
		if !ok {
			t = &Transitions{}
			c.tables[k][key] = t
		}
		t.record(next, downbeat)
	}
}

// Lookup returns the transitions recorded after exactly ctx.
func (c *Chain) Lookup(ctx Context) (*Transitions, bool) {
	k := ctx.Len()
	if k < 1 || k > c.order {
		return nil, false
	}
	t, ok := c.tables[k][ctx]
	return t, ok && t.Total > 0
}

// Sample draws the next note after exactly ctx, weighted by how often each
// followed it, with a duration picked uniformly from the recorded ones.
// Timing fields of the result are placeholders.
func (c *Chain) Sample(ctx Context, rng *rand.Rand) (melody.Event, bool) {
	t, ok := c.Lookup(ctx)
	if !ok {
		return melody.Event{}, false
	}
	return t.draw(rng), true
}

// SampleWithFallback tries ctx and then ever shorter suffixes down to one
// note, returning the first that has data and the length it used. There is
// no empty-context fallback.
func (c *Chain) SampleWithFallback(ctx Context, rng *rand.Rand) (melody.Event, int, bool) {
	for k := ctx.Len(); k >= 1; k-- {
		if ev, ok := c.Sample(ctx.Suffix(k), rng); ok {
			return ev, k, true
		}
	}
	return melody.Event{}, 0, false
}
