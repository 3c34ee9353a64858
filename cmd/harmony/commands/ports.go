package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"go-harmony/midi"
)

var (
	portsWatch    bool
	portsInterval time.Duration
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List or watch MIDI ports",
	Long: `List the MIDI input and output ports. Output ports are what
output.port in the config and run --port match against; input ports are
the keyboards record can use.

With --watch, print the ports again whenever they change.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !portsWatch {
			ins, outs, err := scanPorts()
			if err != nil {
				return err
			}
			printPorts(out, ins, outs)
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return watchPorts(ctx, out, portsInterval)
	},
}

func init() {
	portsCmd.Flags().BoolVarP(&portsWatch, "watch", "w", false, "poll for device changes until Ctrl+C")
	portsCmd.Flags().DurationVar(&portsInterval, "interval", 2*time.Second, "poll interval for --watch")
	rootCmd.AddCommand(portsCmd)
}

func scanPorts() (ins, outs []string, err error) {
	inPorts, err := midi.InPorts()
	if err != nil {
		if errors.Is(err, midi.ErrScanTimeout) {
			return nil, nil, fmt.Errorf("%w (the system MIDI service may be hung)", err)
		}
		return nil, nil, err
	}
	outPorts, err := midi.OutPorts()
	if err != nil {
		return nil, nil, err
	}
	for _, p := range inPorts {
		ins = append(ins, p.String())
	}
	for _, p := range outPorts {
		outs = append(outs, p.String())
	}
	return ins, outs, nil
}

func printPorts(w io.Writer, ins, outs []string) {
	fmt.Fprintln(w, "=== MIDI Input Ports ===")
	for i, name := range ins {
		fmt.Fprintf(w, "  %d: %s\n", i, name)
	}
	fmt.Fprintln(w, "\n=== MIDI Output Ports ===")
	for i, name := range outs {
		fmt.Fprintf(w, "  %d: %s\n", i, name)
	}
}

func watchPorts(ctx context.Context, w io.Writer, every time.Duration) error {
	fmt.Fprintf(w, "Polling for device changes every %s, Ctrl+C to exit.\n", every)
	var lastIn, lastOut []string
	first := true
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		ins, outs, err := scanPorts()
		if err != nil {
			fmt.Fprintf(w, "[%s] %v\n", time.Now().Format("15:04:05"), err)
		} else if first || !slices.Equal(ins, lastIn) || !slices.Equal(outs, lastOut) {
			fmt.Fprintf(w, "\n[%s] ports changed\n", time.Now().Format("15:04:05"))
			printPorts(w, ins, outs)
			lastIn, lastOut, first = ins, outs, false
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
