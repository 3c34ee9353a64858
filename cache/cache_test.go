package cache

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"go-harmony/markov"
	"go-harmony/melody"
)

func newBadgerStore(t *testing.T) Store {
	t.Helper()
	s, err := OpenBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemory(),
		"badger": newBadgerStore(t),
	}
}

func TestStoreGetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := Key{"order", "abc"}
			if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get missing = %v, want ErrNotFound", err)
			}
			if err := s.Set(ctx, key, []byte("v1")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := s.Get(ctx, key)
			if err != nil || string(got) != "v1" {
				t.Fatalf("Get = %q, %v", got, err)
			}
			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := s.Delete(ctx, key); err != nil {
				t.Fatalf("Delete missing: %v", err)
			}
			if _, err := s.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get after delete = %v", err)
			}
		})
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	v := []byte("abc")
	m.Set(ctx, Key{"k"}, v)
	v[0] = 'x'
	got, _ := m.Get(ctx, Key{"k"})
	if string(got) != "abc" {
		t.Fatalf("stored value changed to %q", got)
	}
}

func testMelody() *melody.Melody {
	b := &melody.Builder{}
	for i, n := range []melody.Note{60, 62, 64, 62, 60, melody.Pause, 67} {
		b.Append(melody.FixedEvent(n, melody.MTP{Measure: 1, Offset: float64(i) * 250}, 250))
	}
	return b.Build()
}

func TestFingerprint(t *testing.T) {
	m := testMelody()
	a := Fingerprint(m, Params{Samples: 100, Seed: 1})
	if a != Fingerprint(testMelody(), Params{Samples: 100, Seed: 1}) {
		t.Fatal("fingerprint not stable")
	}
	if a == Fingerprint(m, Params{Samples: 100, Seed: 2}) {
		t.Fatal("seed ignored")
	}
	other := melody.New(melody.FixedEvent(60, melody.MTP{Measure: 1}, 500))
	if a == Fingerprint(other, Params{Samples: 100, Seed: 1}) {
		t.Fatal("melody ignored")
	}
}

func TestOrdersRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			o := NewOrders(s)
			rep := markov.Report{
				Best:      2,
				BestMerit: 0.61,
				Orders: []markov.OrderResult{
					{Order: 1, Scores: markov.Scores{Exact: 0.1, Edit: 0.3, Gram3: 0.2, Gram4: 0.1, Gram5: 0.05}, Merit: 0.4, TooRandom: true},
					{Order: 2, Scores: markov.Scores{Exact: 0.4, Edit: 0.5, Gram3: 0.5, Gram4: 0.4, Gram5: 0.3}, Merit: 0.61},
				},
			}
			if err := o.Put(ctx, "fp", "theme.mid", rep); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, ok, err := o.Get(ctx, "fp")
			if err != nil || !ok {
				t.Fatalf("Get = %v, %v", ok, err)
			}
			if got.Best != 2 || len(got.Orders) != 2 || got.Orders[1].Scores.Gram3 != 0.5 || !got.Orders[0].TooRandom {
				t.Fatalf("got %+v", got)
			}

			if _, ok, _ := o.Get(ctx, "missing"); ok {
				t.Fatal("unexpected hit")
			}
		})
	}
}

func TestSelectCachesSearch(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	o := NewOrders(mem)
	m := testMelody()
	p := Params{Samples: 5, Seed: 7}

	opts := markov.Options{Rng: rand.New(rand.NewPCG(7, 0))}
	first, hit, err := o.Select(ctx, m, "theme.mid", p, opts)
	if err != nil || hit {
		t.Fatalf("first Select hit=%v err=%v", hit, err)
	}
	second, hit, err := o.Select(ctx, m, "theme.mid", p, opts)
	if err != nil || !hit {
		t.Fatalf("second Select hit=%v err=%v", hit, err)
	}
	if first.Best != second.Best || len(first.Orders) != len(second.Orders) {
		t.Fatalf("cached report differs: %+v vs %+v", first, second)
	}
	if mem.Len() != 1 {
		t.Fatalf("store has %d keys, want 1", mem.Len())
	}
}
