// Command roundtable runs three-AI conversations from the terminal and
// serves them over HTTP.
//
//	roundtable chat "Is remote work here to stay?" 10
//	roundtable chat "Is remote work here to stay?" 3 20250102_030405 true
//	roundtable conversations list
//	roundtable serve --config roundtable.yaml
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdout, os.Stderr)
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
