package commands

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"go-harmony/config"
)

// Version is set at build time with -ldflags "-X".
var Version = "dev"

func versionString() string {
	v := Version
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	return "harmony " + v
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, versionString())
		if IsVerbose() {
			fmt.Fprintf(out, "  go:     %s\n", runtime.Version())
			path := configFile
			if path == "" {
				p, err := config.ConfigPath()
				if err != nil {
					p = fmt.Sprintf("(unavailable: %v)", err)
				}
				path = p
			}
			fmt.Fprintf(out, "  config: %s\n", path)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
