package main

import (
	"fmt"
	"os"

	"github.com/zintix-labs/rocklab/sdk/perf"
)

// makefile runner
func main() {
	if err := bindVar(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	var runErr error
	path, err := perf.RunPProf(func() { runErr = execute() }, cfg.pprofmode, "")
	if err == nil {
		err = runErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if path != "" {
		fmt.Fprintln(os.Stderr, "pprof written to", path)
	}
}
