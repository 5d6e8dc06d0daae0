// Command rotctl is the CLI front end for the rotation engine: it wires
// internal/config, opens a storage.Storage backend, and drives
// internal/engine through a cobra command tree mirroring the engine's
// command surface one-to-one.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/maxwell903/sdr-lead-rotation/internal/diag"
	"github.com/maxwell903/sdr-lead-rotation/internal/rotationerr"
)

func main() {
	os.Exit(run())
}

// run is main's logic factored out to an int-returning function so the
// rsc.io/script integration test can register it as an in-process
// subcommand (scripttest.RunMain) without main's os.Exit calls tearing
// down the test binary itself.
func run() (exitCode int) {
	diag.Open(diagLogPath())
	defer diag.Close()

	defer func() {
		if r := recover(); r != nil {
			if err, ok := rotationerr.AsInvariant(r); ok {
				diag.Errorf("invariant violation: %v", err)
				fmt.Fprintf(os.Stderr, "rotctl: invariant violation: %v\n", err)
				exitCode = 2
				return
			}
			panic(r)
		}
	}()

	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rotctl:", err)
		return 1
	}
	return 0
}

// diagLogPath places the rotating diagnostic log next to the user's config
// directory, independent of --db, so it survives across --no-db sessions.
func diagLogPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "rotctl", "diagnostic.log")
}
