// Package sequencer turns generated melody into timed MIDI, one measure at
// a time, and layers chords, bass, drums and looping themes over it.
package sequencer

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"go-harmony/debug"
	"go-harmony/melody"
	"go-harmony/midi"
	"go-harmony/theory"
)

// DefaultStartDelay gives the first state update time to arrive before the
// first measure.
const DefaultStartDelay = 150 * time.Millisecond

// pausePoll is how often a paused scheduler checks for resume.
const pausePoll = 10 * time.Millisecond

// maxEventsPerMeasure stops a melody of zero-length notes from spinning.
const maxEventsPerMeasure = 4096

// Generator yields melody events.
type Generator interface {
	Next() (melody.Event, error)
}

// ThemeSource loads theme files, usually a melody.Cache.
type ThemeSource interface {
	Get(path string) (*melody.File, error)
}

// Config is the fixed part of a session.
type Config struct {
	// Timing of the training melody. Its BPM is the reference tempo.
	Timing melody.TimeSignature
	// KeyRoot is the training melody's major key.
	KeyRoot int

	StartDelay  time.Duration
	Kit         DrumKit
	MaxMeasures int // 0 plays until stopped
	Rng         *rand.Rand
	Initial     MusicState
}

// Status describes the scheduler after a measure, for monitors.
type Status struct {
	Session   string
	Measure   int
	Chord     string
	Scale     string
	BPM       float64
	Intensity float64
	Lead      string
	Bass      string
	Drums     string
	Themes    []string
	Programs  []string // GM program name per theme
	Events    int
	Channels  [16]int // events per channel this measure
	Skipped   int
	Paused    bool
	Connected bool
}

// Scheduler is the measure loop. Run owns all fields except the flags and
// the anchor, which Pause, Resume and SetConnected touch from other
// goroutines.
type Scheduler struct {
	cfg    Config
	clock  Clock
	sink   midi.Sink
	gen    Generator
	themes ThemeSource
	feed   *StateFeed
	rng    *rand.Rand

	session string

	paused      atomic.Bool
	connected   atomic.Bool
	justResumed atomic.Bool

	mu       sync.Mutex
	anchor   time.Time
	pausedAt time.Time

	state    MusicState
	ts       melody.TimeSignature
	chord    theory.Chord
	q        queue
	overflow []PlaybackEvent
	playing  map[string]*themePlayer

	cursor   float64 // ms from the anchor to the current measure start
	playTime float64 // ms from the anchor to the end of generated melody
	measure  int
	skipped  int

	// UpdateChan receives a Status after every measure. Stale values are
	// replaced.
	UpdateChan chan Status
}

// New creates a scheduler. feed and themes may be nil.
func New(cfg Config, clock Clock, sink midi.Sink, gen Generator, themes ThemeSource, feed *StateFeed) *Scheduler {
	if clock == nil {
		clock = RealClock{}
	}
	if cfg.Timing.MsPerBeat == 0 {
		cfg.Timing = melody.DefaultTimeSignature()
	}
	if cfg.Kit.Name == "" {
		cfg.Kit = GetKit(DefaultKit)
	}
	if cfg.Initial.TempoMultiplier == 0 && cfg.Initial.LeadLayers == 0 {
		cfg.Initial = DefaultMusicState()
	}
	rng := cfg.Rng
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if feed == nil {
		feed = NewStateFeed()
	}
	s := &Scheduler{
		cfg:        cfg,
		clock:      clock,
		sink:       sink,
		gen:        gen,
		themes:     themes,
		feed:       feed,
		rng:        rng,
		session:    uuid.NewString(),
		state:      cfg.Initial.Clone(),
		ts:         cfg.Timing,
		playing:    make(map[string]*themePlayer),
		UpdateChan: make(chan Status, 1),
	}
	s.connected.Store(true)
	return s
}

// Session is the id of this run, used in logs.
func (s *Scheduler) Session() string {
	return s.session
}

// Feed is where music state snapshots are published.
func (s *Scheduler) Feed() *StateFeed {
	return s.feed
}

// SetConnected records whether the game is still connected. The loop checks
// it once per measure.
func (s *Scheduler) SetConnected(v bool) {
	s.connected.Store(v)
}

// Connected reports the last connection state.
func (s *Scheduler) Connected() bool {
	return s.connected.Load()
}

// Paused reports whether playback is frozen.
func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}

// Pause silences everything and freezes dispatch. Pausing twice is a no-op.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused.Load() {
		return
	}
	s.pausedAt = s.clock.Now()
	s.paused.Store(true)
	s.sink.AllNotesOff()
	debug.For("sequencer").Info("paused", "session", s.session)
}

// Resume shifts the anchor by the time spent paused, so the measure
// position is where it was, and forces the next chord to retrigger.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused.Load() {
		return
	}
	d := s.clock.Now().Sub(s.pausedAt)
	s.anchor = s.anchor.Add(d)
	s.justResumed.Store(true)
	s.paused.Store(false)
	debug.For("sequencer").Info("resumed", "session", s.session, "paused_for", d)
}

// deadline is the wall-clock time of an anchor offset.
func (s *Scheduler) deadline(at time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anchor.Add(at)
}

// Run plays until ctx is done, the connection is lost or MaxMeasures is
// reached. It returns markov.ErrExhausted from the generator when no more
// melody can be produced.
func (s *Scheduler) Run(ctx context.Context) error {
	log := debug.For("sequencer")
	s.sink.ProgramChange(Lead.Channel, Lead.Program)
	s.sink.ProgramChange(Chords.Channel, Chords.Program)
	s.sink.ProgramChange(Bass.Channel, Bass.Program)

	if s.cfg.StartDelay > 0 {
		if err := s.clock.SleepUntil(ctx, s.clock.Now().Add(s.cfg.StartDelay)); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.anchor = s.clock.Now()
	s.mu.Unlock()
	log.Info("playing", "session", s.session, "bpm", s.ts.BPM, "meter", s.ts.Num, "key", theory.NoteNames[theory.PitchClass(s.cfg.KeyRoot)])

	for {
		if err := ctx.Err(); err != nil {
			s.sink.AllNotesOff()
			return err
		}
		if !s.connected.Load() {
			log.Info("connection lost, stopping music", "session", s.session, "measures", s.measure)
			s.sink.AllNotesOff()
			return nil
		}
		if s.cfg.MaxMeasures > 0 && s.measure >= s.cfg.MaxMeasures {
			s.sink.AllNotesOff()
			return nil
		}
		if s.paused.Load() {
			if err := s.clock.SleepUntil(ctx, s.clock.Now().Add(pausePoll)); err != nil {
				s.sink.AllNotesOff()
				return err
			}
			continue
		}

		if err := s.playMeasure(ctx); err != nil {
			s.sink.AllNotesOff()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Error("measure failed", "session", s.session, "measure", s.measure, "err", err)
			return err
		}
	}
}

// timedNote is a generated melody note placed on the session timeline.
type timedNote struct {
	note  int
	atMs  float64
	durMs float64
}

func (s *Scheduler) playMeasure(ctx context.Context) error {
	// carry overflow
	pending := s.overflow
	s.overflow = nil

	if st, ok := s.feed.Latest(); ok {
		s.state = st
	}
	st := s.state

	// tempo
	mult := st.TempoMultiplier
	if mult <= 0 {
		debug.LogEvery(32, "sequencer", "tempo multiplier %v ignored", mult)
		mult = 1
	}
	s.ts.ChangeTempo(s.cfg.Timing.BPM * mult)

	// measure window
	start := s.cursor
	end := start + s.ts.MsPerMeasure

	palette := theory.DiatonicChords(s.cfg.KeyRoot, st.Scale)

	notes, err := s.pullMelody(end, st)
	if err != nil {
		return err
	}

	// harmony
	var sounding []int
	for _, n := range notes {
		if theory.Audible(n.note) {
			sounding = append(sounding, n.note)
		}
	}
	next := theory.SelectChord(sounding, palette, st.Scale, s.chord, s.rng)
	s.scheduleChord(s.chord, next, start, st)
	s.chord = next

	s.syncThemes(st.Themes)
	s.scheduleThemes(start, next)

	s.scheduleMelody(notes, st)
	s.scheduleBass(next, start, st)
	s.scheduleDrums(start, st)

	// split and dispatch
	due, later := splitDue(append(pending, s.q.take()...), melody.Millis(end))
	s.overflow = later
	sortEvents(due)
	if err := s.dispatch(ctx, due); err != nil {
		return err
	}

	s.cursor = end
	s.measure++
	debug.Log("sequencer", "measure %d: chord=%s events=%d overflow=%d", s.measure, s.chord, len(due), len(later))
	s.publish(due)
	return nil
}

// pullMelody draws events until the melody reaches end.
func (s *Scheduler) pullMelody(end float64, st MusicState) ([]timedNote, error) {
	var out []timedNote
	ratio := s.cfg.Timing.BPM / s.ts.BPM
	for i := 0; s.playTime < end; i++ {
		if i == maxEventsPerMeasure {
			debug.LogEvery(16, "sequencer", "melody stalled at %.1fms", s.playTime)
			s.playTime = end
			break
		}
		ev, err := s.gen.Next()
		if err != nil {
			return out, err
		}
		if ev.Note == melody.Start {
			continue
		}

		note := theory.ChangeNoteForScale(int(ev.Note), s.cfg.KeyRoot, theory.Ionian, st.Scale)
		dur := ev.Duration * ratio

		// clip small overhangs to the measure end
		remaining := end - s.playTime
		if dur >= remaining && dur < remaining+0.25*s.ts.MsPerBeat {
			dur = remaining
		}
		out = append(out, timedNote{note: note, atMs: s.playTime, durMs: dur})
		s.playTime += dur
	}
	return out, nil
}

// dispatch plays events at their deadlines. A pause aborts the rest of the
// measure; those events are dropped and counted. A pause and resume within
// one wait moves the anchor, so the deadline is read again after waking.
func (s *Scheduler) dispatch(ctx context.Context, events []PlaybackEvent) error {
	for i, e := range events {
		for {
			if err := s.clock.SleepUntil(ctx, s.deadline(e.At)); err != nil {
				return err
			}
			if s.paused.Load() {
				n := len(events) - i
				s.skipped += n
				debug.For("sequencer").Info("dispatch interrupted by pause", "skipped", n, "measure", s.measure+1)
				return nil
			}
			if !s.deadline(e.At).After(s.clock.Now()) {
				break
			}
		}
		if e.On {
			s.sink.PlayNote(e.Note, e.Channel, e.Velocity)
		} else {
			s.sink.StopNote(e.Note, e.Channel)
		}
	}
	return nil
}

func (s *Scheduler) publish(due []PlaybackEvent) {
	st := Status{
		Session:   s.session,
		Measure:   s.measure,
		Chord:     s.chord.String(),
		Scale:     s.state.Scale.String(),
		BPM:       s.ts.BPM,
		Intensity: s.state.Intensity,
		Lead:      s.state.LeadStyle.String(),
		Bass:      s.state.BassStyle.String(),
		Drums:     s.state.DrumPattern.String(),
		Events:    len(due),
		Skipped:   s.skipped,
		Paused:    s.paused.Load(),
		Connected: s.connected.Load(),
	}
	for _, e := range due {
		st.Channels[e.Channel&0x0f]++
	}
	for path := range s.playing {
		st.Themes = append(st.Themes, path)
	}
	slices.Sort(st.Themes)
	for _, path := range st.Themes {
		st.Programs = append(st.Programs, ProgramName(int(s.playing[path].inst.Program)))
	}

	select {
	case s.UpdateChan <- st:
		return
	default:
	}
	select {
	case <-s.UpdateChan:
	default:
	}
	select {
	case s.UpdateChan <- st:
	default:
	}
}

// Overflow returns a copy of the events carried into the next measure.
func (s *Scheduler) Overflow() []PlaybackEvent {
	return slices.Clone(s.overflow)
}

// Chord is the chord of the last measure.
func (s *Scheduler) Chord() theory.Chord {
	return s.chord
}

// Measure is the number of measures played.
func (s *Scheduler) Measure() int {
	return s.measure
}
