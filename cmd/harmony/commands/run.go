package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"go-harmony/bridge"
	"go-harmony/config"
	"go-harmony/debug"
	"go-harmony/markov"
	"go-harmony/melody"
	"go-harmony/midi"
	"go-harmony/sequencer"
	"go-harmony/theme"
	"go-harmony/tui"
)

var (
	runRules     string
	runMain      string
	runOrder     int
	runMeasures  int
	runOffline   bool
	runMonitor   bool
	runCapture   string
	runListen    string
	runWebSocket string
	runPort      string
	runKit       string
	runPalette   string
	runNoOutput  bool
	runNoCache   bool
)

var runMusicCmd = &cobra.Command{
	Use:   "run",
	Short: "Play music driven by a game connection",
	Long: `Play music driven by a game connection.

The engine trains a Markov chain on the main melody, waits for the game
and then plays the rules' start state. Each JSON line the game sends
re-evaluates the rules; silence on the connection pauses the music and the
next update resumes it. The music stops when the game disconnects.

Examples:
  harmony run --rules game/rules.yaml
  harmony run --websocket 127.0.0.1:8080 --monitor
  harmony run --offline --main input/theme.mid --measures 8 --no-output --capture out.mid`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		applyRunFlags(cmd, cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return play(ctx, cmd.OutOrStdout(), cfg)
	},
}

func init() {
	f := runMusicCmd.Flags()
	f.StringVarP(&runRules, "rules", "r", "", "rules file (default from config)")
	f.StringVarP(&runMain, "main", "m", "", "training melody, overrides the rules file")
	f.IntVar(&runOrder, "order", 0, "fixed Markov order, skips the order search")
	f.IntVar(&runMeasures, "measures", 0, "stop after this many measures (0 plays until stopped)")
	f.BoolVar(&runOffline, "offline", false, "play the start state without waiting for a game")
	f.BoolVar(&runMonitor, "monitor", false, "show the terminal monitor")
	f.StringVar(&runCapture, "capture", "", "write everything played to this MIDI file")
	f.StringVar(&runListen, "listen", "", "TCP address for the game (default from config)")
	f.StringVar(&runWebSocket, "websocket", "", "accept the game over WebSocket on this address instead of TCP")
	f.StringVar(&runPort, "port", "", "MIDI output port name (substring)")
	f.StringVar(&runKit, "kit", "", "drum kit: "+fmt.Sprint(sequencer.KitNames()))
	f.StringVar(&runPalette, "palette", "", "GIMP palette for the monitor")
	f.BoolVar(&runNoOutput, "no-output", false, "do not open a MIDI output port")
	f.BoolVar(&runNoCache, "no-cache", false, "do not read or store the order search")
	rootCmd.AddCommand(runMusicCmd)
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("rules") {
		cfg.Music.Rules = runRules
	}
	if f.Changed("main") {
		cfg.Music.Main = runMain
	}
	if f.Changed("listen") {
		cfg.Game.Listen = runListen
	}
	if f.Changed("websocket") {
		cfg.Game.WebSocket = runWebSocket
	}
	if f.Changed("port") {
		cfg.Output.Port = runPort
	}
	if f.Changed("kit") {
		cfg.Output.Kit = runKit
	}
}

// gameServer is the transport the game connects through.
type gameServer interface {
	Accept(ctx context.Context) (bridge.Source, error)
	Addr() net.Addr
	Close() error
}

func listenGame(cfg *config.Config) (gameServer, error) {
	if cfg.Game.WebSocket != "" {
		return bridge.ListenWebSocket(cfg.Game.WebSocket)
	}
	return bridge.Listen(cfg.Game.Listen)
}

// startGame blocks until the game connects, then feeds its updates to the
// scheduler in the background until it disconnects. The returned channel
// yields the session's outcome.
func startGame(ctx context.Context, srv gameServer, eval bridge.Evaluator, sched *sequencer.Scheduler) (<-chan error, error) {
	src, err := srv.Accept(ctx)
	if err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		r := bridge.NewReceiver(src, eval, sched.Feed(), sched)
		err := r.Run(ctx)
		debug.For("bridge").Info("game session ended", "session", sched.Session(), "updates", r.Updates(), "dropped", r.Dropped())
		done <- err
	}()
	return done, nil
}

func play(ctx context.Context, out io.Writer, cfg *config.Config) error {
	log := debug.For("harmony")

	if !slices.Contains(sequencer.KitNames(), strings.ToLower(cfg.Output.Kit)) {
		return fmt.Errorf("unknown drum kit %q (have %v)", cfg.Output.Kit, sequencer.KitNames())
	}

	set, err := loadRules(cfg.Music.Rules, cfg.Music.Main != "")
	if err != nil {
		return err
	}
	mainPath := set.Main
	if runMain != "" || mainPath == "" {
		mainPath = cfg.Music.Main
	}
	if mainPath == "" {
		return errors.New("no main melody: set main in the rules file or pass --main")
	}
	file, m, err := loadMelody(mainPath)
	if err != nil {
		return err
	}
	order, err := chooseOrder(ctx, cfg, set, m, mainPath, runOrder, runNoCache)
	if err != nil {
		return err
	}

	themes := melody.NewCache()
	themes.Put(mainPath, file)
	for _, p := range slices.Concat(set.Preload, set.Themes()) {
		if err := themes.Preload(p); err != nil {
			log.Warn("theme not loaded", "path", p, "err", err)
		}
	}

	var sinks []midi.Sink
	if !runNoOutput {
		port, err := midi.OpenPort(cfg.Output.Port)
		if err != nil {
			return err
		}
		defer func() {
			if n := port.Errors(); n > 0 {
				log.Warn("midi write errors", "port", port.Name(), "count", n)
			}
			port.Close()
		}()
		log.Info("midi output", "port", port.Name())
		sinks = append(sinks, port)
	}
	var rec *midi.Recorder
	if runCapture != "" {
		rec = midi.NewRecorder(time.Now)
		sinks = append(sinks, rec)
	}
	sink := midi.Discard
	if len(sinks) > 0 {
		sink = midi.Multi(sinks...)
	}

	rng := newRng(cfg.Music.Seed)
	sched := sequencer.New(sequencer.Config{
		Timing:      file.Timing,
		KeyRoot:     m.KeyRoot(),
		StartDelay:  cfg.StartDelay(),
		Kit:         sequencer.GetKit(cfg.Output.Kit),
		MaxMeasures: runMeasures,
		Rng:         rng,
		Initial:     set.StartState(),
	}, sequencer.RealClock{}, sink, markov.NewGenerator(m, order, cfg.Music.DownbeatTolerance, rng), themes, nil)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	source := "offline"
	var gameDone <-chan error
	if runOffline {
		ch := make(chan error, 1)
		ch <- nil
		gameDone = ch
	} else {
		srv, err := listenGame(cfg)
		if err != nil {
			return fmt.Errorf("listen for game: %w", err)
		}
		defer srv.Close()
		source = "game " + srv.Addr().String()
		fmt.Fprintf(out, "waiting for game on %s\n", srv.Addr())
		gameDone, err = startGame(ctx, srv, set, sched)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("wait for game: %w", err)
		}
	}

	var prog *tea.Program
	if runMonitor {
		if !cfg.Debug.Enabled {
			debug.SetOutput(io.Discard)
			defer debug.SetOutput(os.Stderr)
		}
		th := theme.New(theme.Default())
		if runPalette != "" {
			pal, err := theme.LoadGPL(runPalette)
			if err != nil {
				return err
			}
			th = theme.New(pal)
		}
		model := tui.NewModel(sched, sched.UpdateChan, th)
		model.Source = fmt.Sprintf("%s  order %d  %s", source, order, mainPath)
		model.Quit = cancel
		prog = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	}

	done := make(chan error, 1)
	go func() {
		done <- sched.Run(ctx)
		if prog != nil {
			prog.Quit()
		}
	}()
	if prog != nil {
		if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			cancel()
			<-done
			return fmt.Errorf("monitor: %w", err)
		}
	}
	runErr := <-done
	cancel()
	if err := <-gameDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("game connection failed", "err", err)
	}

	if rec != nil {
		if err := rec.WriteFile(runCapture, file.Timing); err != nil {
			return fmt.Errorf("write capture: %w", err)
		}
		fmt.Fprintf(out, "captured %d events to %s\n", len(rec.Events()), runCapture)
	}
	fmt.Fprintf(out, "played %d measures (session %s)\n", sched.Measure(), sched.Session())

	switch {
	case runErr == nil, errors.Is(runErr, context.Canceled):
		return nil
	case errors.Is(runErr, markov.ErrExhausted):
		return fmt.Errorf("melody ran out after %d measures: %w", sched.Measure(), runErr)
	}
	return runErr
}
