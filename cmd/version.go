package cmd

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/abhisek/sleeptracker/internal/selfupdate"
)

// version is set via -ldflags at build time.
var version = selfupdate.DevVersion

// currentVersion prefers the ldflags value, then the module version that
// `go install` records in the binary.
func currentVersion() string {
	if version != selfupdate.DevVersion {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return selfupdate.DevVersion
}

func writeVersion(w io.Writer, v string, verbose bool) {
	fmt.Fprintln(w, "sleeptracker", v)
	if verbose {
		fmt.Fprintf(w, "go:       %s\n", runtime.Version())
		fmt.Fprintf(w, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		writeVersion(cmd.OutOrStdout(), currentVersion(), verbose)
	},
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "Also print the Go version and platform")
}
