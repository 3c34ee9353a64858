// Package rules maps game state onto music state. A YAML rules file names
// the training melody and lists triggers for mobs, environments and tags;
// each trigger carries the musical changes it causes.
package rules

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-yaml"
	"github.com/itchyny/gojq"

	"go-harmony/debug"
	"go-harmony/sequencer"
	"go-harmony/theory"
)

// Kind is the trigger list a rule came from.
type Kind int

const (
	Start Kind = iota
	Mob
	Environment
	Tag
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "start"
	case Mob:
		return "mob"
	case Environment:
		return "environment"
	case Tag:
		return "tag"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var allowedKeys = map[string]bool{
	"theme":            true,
	"instrument":       true,
	"intensity":        true,
	"scale":            true,
	"tempo_multiplier": true,
	"lead_style":       true,
	"lead_layers":      true,
	"chord_layers":     true,
	"bass_style":       true,
	"drum_pattern":     true,
	"when":             true,
}

// Rule is one validated trigger. Nil fields leave the music state alone.
type Rule struct {
	Name string
	Kind Kind

	// Theme is the resolved path of the theme file; empty when the rule
	// has no usable theme and instrument pair.
	Theme      string
	Instrument int

	Intensity       *float64
	Scale           *theory.Mode
	TempoMultiplier *float64
	LeadStyle       *sequencer.LeadStyle
	LeadLayers      *int
	ChordLayers     *int
	BassStyle       *sequencer.BassStyle
	DrumPattern     *sequencer.DrumPattern

	When  string
	query *gojq.Query
}

// HasTheme reports whether the rule activates a theme.
func (r Rule) HasTheme() bool {
	return r.Theme != ""
}

// Apply writes the rule's settings into st.
func (r Rule) Apply(st *sequencer.MusicState) {
	if r.Intensity != nil {
		st.Intensity = *r.Intensity
	}
	if r.Scale != nil {
		st.Scale = *r.Scale
	}
	if r.TempoMultiplier != nil {
		st.TempoMultiplier = *r.TempoMultiplier
	}
	if r.LeadStyle != nil {
		st.LeadStyle = *r.LeadStyle
	}
	if r.LeadLayers != nil {
		st.LeadLayers = *r.LeadLayers
	}
	if r.ChordLayers != nil {
		st.ChordLayers = *r.ChordLayers
	}
	if r.BassStyle != nil {
		st.BassStyle = *r.BassStyle
	}
	if r.DrumPattern != nil {
		st.DrumPattern = *r.DrumPattern
	}
	if r.HasTheme() {
		if st.Themes == nil {
			st.Themes = map[string]int{}
		}
		st.Themes[r.Theme] = r.Instrument
	}
}

// Matches runs the rule's filter on input. A rule without a filter always
// matches; a filter matches when its first result is neither null nor
// false.
func (r Rule) Matches(input any) bool {
	if r.query == nil {
		return true
	}
	iter := r.query.Run(input)
	v, ok := iter.Next()
	if !ok {
		return false
	}
	if err, ok := v.(error); ok {
		debug.LogEvery(32, "rules", "%s %q: filter failed: %v", r.Kind, r.Name, err)
		return false
	}
	return v != nil && v != false
}

// Set is a loaded rules file.
type Set struct {
	Main        string
	AutoMarkov  bool
	MarkovOrder int
	Preload     []string

	Start       Rule
	Mob         map[string]Rule
	Environment map[string]Rule
	Tag         map[string]Rule
}

type fileFormat struct {
	Main        string         `yaml:"main"`
	AutoMarkov  *bool          `yaml:"auto_markov"`
	MarkovOrder int            `yaml:"markov_order"`
	Preload     []string       `yaml:"preload"`
	Start       map[string]any `yaml:"start"`
	Triggers    struct {
		Mob         map[string]map[string]any `yaml:"mob"`
		Environment map[string]map[string]any `yaml:"environment"`
		Tag         map[string]map[string]any `yaml:"tag"`
	} `yaml:"triggers"`
}

// Load reads a rules file. Paths inside it are relative to its directory.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	s, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("rules: %s: %w", path, err)
	}
	return s, nil
}

// Parse reads rules from YAML. Invalid settings are defaulted or dropped
// with a warning; only malformed YAML is an error. dir resolves relative
// paths and is where theme files are checked; an empty dir skips the
// check.
func Parse(data []byte, dir string) (*Set, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	log := debug.For("rules")

	s := &Set{
		Main:        resolve(dir, f.Main),
		AutoMarkov:  true,
		MarkovOrder: f.MarkovOrder,
		Mob:         make(map[string]Rule),
		Environment: make(map[string]Rule),
		Tag:         make(map[string]Rule),
	}
	if f.AutoMarkov != nil {
		s.AutoMarkov = *f.AutoMarkov
	}
	if !s.AutoMarkov && s.MarkovOrder < 1 {
		log.Warn("markov_order must be at least 1, using automatic order", "markov_order", f.MarkovOrder)
		s.AutoMarkov = true
	}
	for _, p := range f.Preload {
		s.Preload = append(s.Preload, resolve(dir, p))
	}

	if f.Start == nil {
		log.Warn("rules file has no start section")
	}
	s.Start = parseRule(Start, "start", f.Start, dir)

	if len(f.Triggers.Mob)+len(f.Triggers.Environment)+len(f.Triggers.Tag) == 0 {
		log.Warn("rules file has no triggers")
	}
	for name, cfg := range f.Triggers.Mob {
		s.Mob[name] = parseRule(Mob, name, cfg, dir)
	}
	for name, cfg := range f.Triggers.Environment {
		s.Environment[name] = parseRule(Environment, name, cfg, dir)
	}
	for name, cfg := range f.Triggers.Tag {
		s.Tag[name] = parseRule(Tag, name, cfg, dir)
	}
	return s, nil
}

// Themes lists every theme file the rules can activate, sorted.
func (s *Set) Themes() []string {
	seen := map[string]bool{}
	add := func(r Rule) {
		if r.HasTheme() {
			seen[r.Theme] = true
		}
	}
	add(s.Start)
	for _, m := range []map[string]Rule{s.Mob, s.Environment, s.Tag} {
		for _, r := range m {
			add(r)
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func resolve(dir, path string) string {
	if path == "" || dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func parseRule(kind Kind, name string, cfg map[string]any, dir string) Rule {
	r := Rule{Name: name, Kind: kind}
	if cfg == nil {
		return r
	}
	warn := func(msg string, args ...any) {
		debug.For("rules").Warn(msg, append([]any{"trigger", name, "kind", kind.String()}, args...)...)
	}

	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !allowedKeys[k] {
			warn("unknown parameter ignored", "key", k)
		}
	}

	// theme and instrument only work together
	themeV, hasThemeKey := cfg["theme"]
	instV, hasInstKey := cfg["instrument"]
	var theme string
	instrument := -1
	if hasThemeKey {
		if p, ok := themeV.(string); ok && p != "" {
			theme = resolve(dir, p)
			if dir != "" {
				if fi, err := os.Stat(theme); err != nil || !fi.Mode().IsRegular() {
					warn("theme file not found, theme disabled", "theme", theme)
					theme = ""
				}
			}
		} else {
			warn("theme has the wrong type, ignored", "value", themeV)
		}
	}
	if hasInstKey {
		if n, ok := number(instV); ok {
			if n < 0 || n > 127 {
				warn("instrument out of range 0..127, ignored", "value", n)
			} else {
				instrument = int(n)
			}
		} else {
			warn("instrument has the wrong type, ignored", "value", instV)
		}
	}
	if theme != "" && instrument >= 0 {
		r.Theme = theme
		r.Instrument = instrument
	} else if hasThemeKey || hasInstKey {
		warn("theme and instrument must both be valid, theme disabled")
	}

	if v, ok := cfg["intensity"]; ok {
		x, isNum := number(v)
		if !isNum {
			warn("intensity has the wrong type, using 0", "value", v)
			x = 0
		} else if x < 0 || x > 1 {
			warn("intensity out of range 0..1, clamped", "value", x)
			x = min(max(x, 0), 1)
		}
		r.Intensity = &x
	}

	if v, ok := cfg["scale"]; ok {
		m := theory.Ionian
		if str, isStr := v.(string); !isStr {
			warn("scale has the wrong type, using Ionian", "value", v)
		} else if parsed, err := theory.ParseMode(str); err != nil {
			warn("invalid scale, using Ionian", "value", str)
		} else {
			m = parsed
		}
		r.Scale = &m
	}

	if v, ok := cfg["tempo_multiplier"]; ok {
		x, isNum := number(v)
		if !isNum {
			warn("tempo_multiplier has the wrong type, using 1", "value", v)
			x = 1
		} else if x < 0 {
			warn("tempo_multiplier below 0, using 1", "value", x)
			x = 1
		}
		r.TempoMultiplier = &x
	}

	if v, ok := cfg["lead_style"]; ok {
		ls := sequencer.LeadSustain
		if str, isStr := v.(string); !isStr {
			warn("lead_style has the wrong type, using Sustain", "value", v)
		} else if parsed, err := sequencer.ParseLeadStyle(str); err != nil {
			warn("invalid lead_style, using Sustain", "value", str)
		} else {
			ls = parsed
		}
		r.LeadStyle = &ls
	}

	r.LeadLayers = layers(cfg, "lead_layers", warn)
	r.ChordLayers = layers(cfg, "chord_layers", warn)

	if v, ok := cfg["bass_style"]; ok {
		bs := sequencer.BassSustain
		if str, isStr := v.(string); !isStr {
			warn("bass_style has the wrong type, using Sustain", "value", v)
		} else if parsed, err := sequencer.ParseBassStyle(str); err != nil {
			warn("invalid bass_style, using Sustain", "value", str)
		} else {
			bs = parsed
		}
		r.BassStyle = &bs
	}

	if v, ok := cfg["drum_pattern"]; ok {
		dp := sequencer.DrumsNone
		if str, isStr := v.(string); !isStr {
			warn("drum_pattern has the wrong type, using None", "value", v)
		} else if parsed, err := sequencer.ParseDrumPattern(str); err != nil {
			warn("invalid drum_pattern, using None", "value", str)
		} else {
			dp = parsed
		}
		r.DrumPattern = &dp
	}

	if v, ok := cfg["when"]; ok {
		expr, isStr := v.(string)
		if !isStr {
			warn("when has the wrong type, ignored", "value", v)
		} else if q, err := gojq.Parse(expr); err != nil {
			warn("invalid when filter, rule disabled", "when", expr, "err", err)
			r.When = expr
			r.query = never
		} else {
			r.When = expr
			r.query = q
		}
	}
	return r
}

// never is the filter of a rule whose own filter does not parse.
var never = func() *gojq.Query {
	q, err := gojq.Parse("false")
	if err != nil {
		panic(err)
	}
	return q
}()

func layers(cfg map[string]any, key string, warn func(string, ...any)) *int {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	n := 1
	if x, isNum := number(v); !isNum {
		warn(key+" has the wrong type, using 1", "value", v)
	} else if x < 1 {
		warn(key+" below 1, using 1", "value", x)
	} else {
		n = int(x)
	}
	return &n
}

// number accepts any numeric YAML scalar.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
