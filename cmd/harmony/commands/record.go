package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go-harmony/melody"
	"go-harmony/midi"
)

var (
	recordPort     string
	recordBPM      float64
	recordNum      int
	recordDenom    int
	recordDuration time.Duration
)

var recordCmd = &cobra.Command{
	Use:   "record <out.mid>",
	Short: "Capture a keyboard performance to a MIDI file",
	Long: `Capture a keyboard performance to a MIDI file, e.g. a new main
melody or theme. Recording starts at the first key press and stops on
Ctrl+C or after --duration. Keyboards are picked up when plugged in.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("port") {
			recordPort = cfg.Keyboard.Port
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if recordDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, recordDuration)
			defer cancel()
		}

		out := cmd.OutOrStdout()
		dm := midi.NewDeviceManager()
		want := strings.ToLower(recordPort)
		dm.Match = func(name string) bool {
			name = strings.ToLower(name)
			return !strings.Contains(name, "through") && strings.Contains(name, want)
		}
		go dm.Run(ctx)

		c := midi.NewCapture(melody.NewTimeSignature(recordNum, recordDenom, recordBPM, melody.DefaultTicksPerQuarter))
		fmt.Fprintln(out, "waiting for a keyboard, Ctrl+C to stop")

		var (
			active string
			keys   <-chan midi.NoteEvent
		)
	loop:
		for {
			select {
			case <-ctx.Done():
				break loop

			case ev := <-dm.Events():
				switch ev.Type {
				case midi.DeviceConnected:
					if keys == nil && ev.Controller.Type() == midi.ControllerKeyboard {
						active, keys = ev.ID, ev.Controller.NoteEvents()
						fmt.Fprintf(out, "recording from %s\n", active)
					}
				case midi.DeviceDisconnected:
					if ev.ID == active {
						fmt.Fprintf(out, "%s disconnected\n", active)
						active, keys = "", nil
					}
				}

			case e, ok := <-keys:
				if !ok {
					keys = nil
					continue
				}
				c.Add(e)
			}
		}

		if c.Len() == 0 {
			return errors.New("nothing recorded")
		}
		if err := c.WriteFile(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %d notes to %s\n", c.Len(), args[0])
		return nil
	},
}

func init() {
	f := recordCmd.Flags()
	f.StringVar(&recordPort, "port", "", "keyboard input port name (substring, default from config)")
	f.Float64Var(&recordBPM, "bpm", melody.DefaultBPM, "tempo written to the file")
	f.IntVar(&recordNum, "beats", 4, "beats per measure")
	f.IntVar(&recordDenom, "beat-unit", 4, "note value of one beat")
	f.DurationVar(&recordDuration, "duration", 0, "stop after this long (0 records until Ctrl+C)")
	rootCmd.AddCommand(recordCmd)
}
