package commands

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"go-harmony/cache"
	"go-harmony/config"
	"go-harmony/debug"
	"go-harmony/markov"
	"go-harmony/melody"
	"go-harmony/rules"
)

// newRng seeds from the config. Seed 0 picks a random seed.
func newRng(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// loadMelody reads a training file and extracts its melody.
func loadMelody(path string) (*melody.File, *melody.Melody, error) {
	f, err := melody.Load(path)
	if err != nil {
		return nil, nil, err
	}
	m := melody.FromFile(f)
	if m.Len() == 0 {
		return nil, nil, fmt.Errorf("%s: no notes", path)
	}
	return f, m, nil
}

// loadRules reads the rules file. Without one, a run with an explicit main
// melody plays the default start state.
func loadRules(path string, haveMain bool) (*rules.Set, error) {
	set, err := rules.Load(path)
	if err == nil {
		return set, nil
	}
	if errors.Is(err, os.ErrNotExist) && haveMain {
		debug.For("rules").Warn("no rules file, game updates will not change the music", "path", path)
		return rules.Parse([]byte("start: {}\n"), "")
	}
	return nil, err
}

// openOrders opens the order cache. A disabled cache is an in-memory store
// so the search path stays the same.
func openOrders(cfg *config.Config, disabled bool) (*cache.Orders, func() error, error) {
	if disabled || cfg.Cache.Disabled {
		mem := cache.NewMemory()
		return cache.NewOrders(mem), mem.Close, nil
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		return nil, nil, err
	}
	db, err := cache.OpenBadger(cache.BadgerOptions{Dir: dir})
	if err != nil {
		return nil, nil, fmt.Errorf("open cache %s: %w", dir, err)
	}
	return cache.NewOrders(db), db.Close, nil
}

// searchOrder returns the order report for m, from the cache when the same
// melody was searched with the same settings before. The search seed is
// fixed by the config so cached results stay valid.
func searchOrder(ctx context.Context, cfg *config.Config, m *melody.Melody, source string, noCache bool) (markov.Report, bool, error) {
	orders, closeStore, err := openOrders(cfg, noCache)
	if err != nil {
		return markov.Report{}, false, err
	}
	defer closeStore()

	p := cache.Params{Samples: markov.DefaultSamples, Seed: cfg.Music.Seed}
	opts := markov.Options{
		DownbeatTol: cfg.Music.DownbeatTolerance,
		Rng:         rand.New(rand.NewPCG(p.Seed, uint64(p.Samples))),
	}
	return orders.Select(ctx, m, source, p, opts)
}

// chooseOrder picks the Markov order for a run. A manual order comes from
// the command line, then the rules file, then the config.
func chooseOrder(ctx context.Context, cfg *config.Config, set *rules.Set, m *melody.Melody, source string, flagOrder int, noCache bool) (int, error) {
	log := debug.For("markov")
	switch {
	case flagOrder > 0:
		return flagOrder, nil
	case !set.AutoMarkov:
		return set.MarkovOrder, nil
	case !cfg.Music.AutoMarkov && cfg.Music.MarkovOrder > 0:
		return cfg.Music.MarkovOrder, nil
	}

	rep, hit, err := searchOrder(ctx, cfg, m, source, noCache)
	if err != nil {
		return 0, err
	}
	log.Info("markov order selected", "order", rep.Best, "merit", rep.BestMerit, "cached", hit)
	return rep.Best, nil
}
