package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"go-harmony/markov"
	"go-harmony/melody"
)

// Params are the search settings that, with the melody, determine a result.
type Params struct {
	Samples int
	Seed    uint64
}

// Fingerprint identifies a melody and search settings. It hashes every
// event's note and duration.
func Fingerprint(m *melody.Melody, p Params) string {
	h := sha256.New()
	var buf [8]byte
	for _, e := range m.Events() {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(e.Note)))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(e.Duration))
		h.Write(buf[:])
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(p.Samples))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], p.Seed)
	h.Write(buf[:])
	return hex.EncodeToString(h.Sum(nil))
}

type orderRecord struct {
	Best      int           `msgpack:"best"`
	BestMerit float64       `msgpack:"best_merit"`
	Orders    []orderResult `msgpack:"orders"`
	Source    string        `msgpack:"source,omitempty"`
	CreatedAt time.Time     `msgpack:"created_at"`
}

type orderResult struct {
	Order      int        `msgpack:"order"`
	Scores     [5]float64 `msgpack:"scores"`
	Merit      float64    `msgpack:"merit"`
	TooSimilar bool       `msgpack:"too_similar"`
	TooRandom  bool       `msgpack:"too_random"`
}

// Orders caches order search reports by fingerprint.
type Orders struct {
	store Store
}

// NewOrders wraps a store.
func NewOrders(s Store) *Orders {
	return &Orders{store: s}
}

func orderKey(fp string) Key {
	return Key{"order", fp}
}

// Get returns a cached report. The bool is false on a miss.
func (o *Orders) Get(ctx context.Context, fp string) (markov.Report, bool, error) {
	data, err := o.store.Get(ctx, orderKey(fp))
	if errors.Is(err, ErrNotFound) {
		return markov.Report{}, false, nil
	}
	if err != nil {
		return markov.Report{}, false, err
	}
	var rec orderRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return markov.Report{}, false, fmt.Errorf("cache: decode order %s: %w", fp, err)
	}

	rep := markov.Report{Best: rec.Best, BestMerit: rec.BestMerit}
	for _, r := range rec.Orders {
		s := r.Scores
		rep.Orders = append(rep.Orders, markov.OrderResult{
			Order:      r.Order,
			Scores:     markov.Scores{Exact: s[0], Edit: s[1], Gram3: s[2], Gram4: s[3], Gram5: s[4]},
			Merit:      r.Merit,
			TooSimilar: r.TooSimilar,
			TooRandom:  r.TooRandom,
		})
	}
	return rep, true, nil
}

// Put stores a report. source is informational, usually the file path.
func (o *Orders) Put(ctx context.Context, fp, source string, rep markov.Report) error {
	rec := orderRecord{
		Best:      rep.Best,
		BestMerit: rep.BestMerit,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	for _, r := range rep.Orders {
		s := r.Scores
		rec.Orders = append(rec.Orders, orderResult{
			Order:      r.Order,
			Scores:     [5]float64{s.Exact, s.Edit, s.Gram3, s.Gram4, s.Gram5},
			Merit:      r.Merit,
			TooSimilar: r.TooSimilar,
			TooRandom:  r.TooRandom,
		})
	}
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return err
	}
	return o.store.Set(ctx, orderKey(fp), data)
}

// Forget removes a cached report.
func (o *Orders) Forget(ctx context.Context, fp string) error {
	return o.store.Delete(ctx, orderKey(fp))
}

// Select returns the cached report for m, running the search and storing
// its result on a miss. The bool reports a cache hit.
func (o *Orders) Select(ctx context.Context, m *melody.Melody, source string, p Params, opts markov.Options) (markov.Report, bool, error) {
	fp := Fingerprint(m, p)
	if rep, ok, err := o.Get(ctx, fp); err != nil {
		return markov.Report{}, false, err
	} else if ok {
		return rep, true, nil
	}

	if opts.Samples == 0 {
		opts.Samples = p.Samples
	}
	rep, err := markov.SelectOrder(ctx, m, opts)
	if err != nil {
		return markov.Report{}, false, err
	}
	if err := o.Put(ctx, fp, source, rep); err != nil {
		return rep, false, fmt.Errorf("cache: store order: %w", err)
	}
	return rep, false, nil
}
