package rules

import (
	"sort"

	"go-harmony/bridge"
	"go-harmony/sequencer"
)

// StartState is the music state before any game update.
func (s *Set) StartState() sequencer.MusicState {
	st := sequencer.DefaultMusicState()
	s.Start.Apply(&st)
	return st
}

// Evaluate builds the music state for a game update. It starts from the
// start state, then applies the matching environment rule, the tag rules in
// the order the game lists them and the mob rules from the farthest enemy
// to the nearest, so nearer enemies win. Themes of every applied rule are
// active. Without a rule that sets it, intensity is 1 - playerHealth.
func (s *Set) Evaluate(gs bridge.GameState) sequencer.MusicState {
	st := sequencer.DefaultMusicState()
	intensitySet := false
	apply := func(r Rule, input any) {
		if !r.Matches(input) {
			return
		}
		r.Apply(&st)
		if r.Intensity != nil {
			intensitySet = true
		}
	}

	var doc any
	if gs.Raw != nil {
		doc = gs.Raw
	}

	apply(s.Start, doc)
	if r, ok := s.Environment[gs.Environment.Type]; ok && gs.Environment.Type != "" {
		apply(r, doc)
	}
	for _, tag := range gs.Environment.Tags {
		if r, ok := s.Tag[tag]; ok {
			apply(r, doc)
		}
	}

	enemies := make([]bridge.Enemy, len(gs.Enemies))
	copy(enemies, gs.Enemies)
	sort.SliceStable(enemies, func(i, j int) bool { return enemies[i].Distance > enemies[j].Distance })
	for _, e := range enemies {
		if r, ok := s.Mob[e.Type]; ok {
			apply(r, e.Value())
		}
	}

	if !intensitySet {
		st.Intensity = 1 - gs.PlayerHealth
	}
	return st
}

var _ bridge.Evaluator = (*Set)(nil)
