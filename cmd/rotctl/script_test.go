package main

import (
	"context"
	"os"
	"testing"

	"rsc.io/script"
	"rsc.io/script/scripttest"
)

// TestMain registers rotctl as an in-process subcommand the txtar scripts
// below can "exec", the same way the teacher's own integration harness
// avoids shelling out to a separately built binary.
func TestMain(m *testing.M) {
	os.Exit(scripttest.RunMain(m, map[string]func() int{
		"rotctl": run,
	}))
}

// TestRotationScripts drives cmd/rotctl end-to-end against the scenarios
// under testdata, mirroring the teacher's own txtar-driven command tests.
func TestRotationScripts(t *testing.T) {
	engine := script.NewEngine()
	scripttest.Test(t, context.Background(), engine, os.Environ(), "testdata/*.txt")
}
