package rules

import (
	"os"
	"path/filepath"
	"testing"

	"go-harmony/bridge"
	"go-harmony/sequencer"
	"go-harmony/theory"
)

const example = `
main: input/theme.mid
auto_markov: true
markov_order: 3
preload: [input/boss.mid]
start:
  scale: Dorian
triggers:
  mob:
    zombie: {theme: input/boss.mid, instrument: 30, drum_pattern: Combat, when: '.distance < 10'}
    bat: {drum_pattern: Calm, lead_style: Pulse}
  environment:
    cave: {scale: Phrygian, tempo_multiplier: 0.8}
  tag:
    night: {lead_style: Pulse, intensity: 0.3}
    rain: {chord_layers: 2}
`

func mustParse(t *testing.T, src string) *Set {
	t.Helper()
	s, err := Parse([]byte(src), "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return s
}

func TestParseExample(t *testing.T) {
	s := mustParse(t, example)
	if s.Main != "input/theme.mid" || !s.AutoMarkov || s.MarkovOrder != 3 {
		t.Fatalf("header = %+v", s)
	}
	if len(s.Preload) != 1 || s.Preload[0] != "input/boss.mid" {
		t.Fatalf("preload = %v", s.Preload)
	}
	z := s.Mob["zombie"]
	if z.Theme != "input/boss.mid" || z.Instrument != 30 || z.When != ".distance < 10" {
		t.Fatalf("zombie = %+v", z)
	}
	if z.DrumPattern == nil || *z.DrumPattern != sequencer.DrumsCombat {
		t.Fatalf("zombie drums = %v", z.DrumPattern)
	}
	if cave := s.Environment["cave"]; cave.TempoMultiplier == nil || *cave.TempoMultiplier != 0.8 {
		t.Fatalf("cave = %+v", cave)
	}
	if got := s.Themes(); len(got) != 1 || got[0] != "input/boss.mid" {
		t.Fatalf("themes = %v", got)
	}
	if st := s.StartState(); st.Scale != theory.Dorian || st.TempoMultiplier != 1 {
		t.Fatalf("start = %+v", st)
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	if _, err := Parse([]byte("triggers: [unclosed"), ""); err == nil {
		t.Fatal("Parse succeeded on malformed YAML")
	}
}

func TestValidationDefaults(t *testing.T) {
	s := mustParse(t, `
triggers:
  mob:
    a: {intensity: 2, scale: Blues, tempo_multiplier: -1, lead_layers: 0, chord_layers: two, bass_style: Slap, drum_pattern: 5, lead_style: Loud}
    b: {intensity: high, scale: 3, tempo_multiplier: fast, drum_pattern: Jazz}
    c: {theme: x.mid}
    d: {instrument: 12}
    e: {theme: x.mid, instrument: 300}
    f: {theme: 7, instrument: 4}
    g: {when: '.distance <'}
    h: {volume: 11}
`)
	a := s.Mob["a"]
	checks := []struct {
		name string
		ok   bool
	}{
		{"intensity clamped", *a.Intensity == 1},
		{"scale defaults to Ionian", *a.Scale == theory.Ionian},
		{"negative tempo defaults to 1", *a.TempoMultiplier == 1},
		{"lead_layers raised to 1", *a.LeadLayers == 1},
		{"chord_layers wrong type is 1", *a.ChordLayers == 1},
		{"bass_style defaults to Sustain", *a.BassStyle == sequencer.BassSustain},
		{"drum_pattern wrong type is None", *a.DrumPattern == sequencer.DrumsNone},
		{"lead_style defaults to Sustain", *a.LeadStyle == sequencer.LeadSustain},
	}
	for _, c := range checks {
		if !c.ok {
			t.Errorf("%s: rule = %+v", c.name, a)
		}
	}

	b := s.Mob["b"]
	if *b.Intensity != 0 || *b.Scale != theory.Ionian || *b.TempoMultiplier != 1 || *b.DrumPattern != sequencer.DrumsNone {
		t.Errorf("b = %+v", b)
	}
	if b.LeadLayers != nil || b.BassStyle != nil {
		t.Errorf("absent fields were set: %+v", b)
	}

	for _, name := range []string{"c", "d", "e", "f"} {
		if s.Mob[name].HasTheme() {
			t.Errorf("%s: theme enabled without a valid pair", name)
		}
	}

	g := s.Mob["g"]
	if g.Matches(map[string]any{"distance": 1.0}) {
		t.Error("rule with a broken filter matched")
	}
	if h := s.Mob["h"]; !h.Matches(nil) {
		t.Error("rule without a filter must match")
	}
}

func TestMissingThemeFileDisablesTheme(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "here.mid"), []byte("MThd"), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "rules.yaml")
	src := `
main: theme.mid
start: {}
triggers:
  mob:
    ok: {theme: here.mid, instrument: 1}
    gone: {theme: missing.mid, instrument: 1}
`
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Main != filepath.Join(dir, "theme.mid") {
		t.Errorf("main = %s", s.Main)
	}
	if got := s.Mob["ok"].Theme; got != filepath.Join(dir, "here.mid") {
		t.Errorf("ok theme = %q", got)
	}
	if s.Mob["gone"].HasTheme() {
		t.Error("missing theme file not disabled")
	}
}

func TestManualOrderNeedsValue(t *testing.T) {
	s := mustParse(t, "auto_markov: false\nmarkov_order: 0\n")
	if !s.AutoMarkov {
		t.Fatal("invalid manual order must fall back to automatic")
	}
	s = mustParse(t, "auto_markov: false\nmarkov_order: 4\n")
	if s.AutoMarkov || s.MarkovOrder != 4 {
		t.Fatalf("manual order = %+v", s)
	}
}

func gameState(t *testing.T, doc string) bridge.GameState {
	t.Helper()
	gs, err := bridge.ParseGameState([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	return gs
}

func TestEvaluateOrder(t *testing.T) {
	s := mustParse(t, example)

	tests := []struct {
		name  string
		doc   string
		check func(sequencer.MusicState) bool
	}{
		{
			"start only",
			`{"playerHealth":0.75}`,
			func(st sequencer.MusicState) bool {
				return st.Scale == theory.Dorian && st.Intensity == 0.25 && len(st.Themes) == 0
			},
		},
		{
			"environment overrides start",
			`{"environment":"cave"}`,
			func(st sequencer.MusicState) bool {
				return st.Scale == theory.Phrygian && st.TempoMultiplier == 0.8
			},
		},
		{
			"tags apply and set intensity",
			`{"playerHealth":0.1,"environment":{"type":"cave","tags":["night","rain"]}}`,
			func(st sequencer.MusicState) bool {
				return st.LeadStyle == sequencer.LeadPulse && st.ChordLayers == 2 && st.Intensity == 0.3
			},
		},
		{
			"nearest mob wins",
			`{"enemies":[{"type":"zombie","distance":5},{"type":"bat","distance":2}]}`,
			func(st sequencer.MusicState) bool {
				return st.DrumPattern == sequencer.DrumsCalm && st.Themes["input/boss.mid"] == 30
			},
		},
		{
			"nearest mob wins regardless of order",
			`{"enemies":[{"type":"bat","distance":8},{"type":"zombie","distance":5}]}`,
			func(st sequencer.MusicState) bool {
				return st.DrumPattern == sequencer.DrumsCombat
			},
		},
		{
			"filter rejects far zombie",
			`{"enemies":[{"type":"zombie","distance":50}]}`,
			func(st sequencer.MusicState) bool {
				return st.DrumPattern == sequencer.DrumsNone && len(st.Themes) == 0
			},
		},
		{
			"unknown triggers are ignored",
			`{"environment":"space","enemies":[{"type":"alien","distance":1}]}`,
			func(st sequencer.MusicState) bool {
				return st.Scale == theory.Dorian
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := s.Evaluate(gameState(t, tt.doc))
			if !tt.check(st) {
				t.Fatalf("state = %+v", st)
			}
		})
	}
}

func TestWhenSeesWholeState(t *testing.T) {
	s := mustParse(t, `
triggers:
  environment:
    cave: {scale: Locrian, when: '.playerHealth < 0.5'}
`)
	if st := s.Evaluate(gameState(t, `{"playerHealth":0.9,"environment":"cave"}`)); st.Scale != theory.Ionian {
		t.Fatalf("filter ignored: %v", st.Scale)
	}
	if st := s.Evaluate(gameState(t, `{"playerHealth":0.2,"environment":"cave"}`)); st.Scale != theory.Locrian {
		t.Fatalf("filter rejected a match: %v", st.Scale)
	}
}
