// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command intervalcheck inspects and validates interval check predictions
// for a float32 frame accumulator.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/IntervalCheck/pkg/ux"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the root command with args and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	printer := ux.NewPrinter(stdout, stderr, ux.PersonalityMachine)
	if rt != nil {
		printer = rt.printer
	}
	if closeErr := closeRuntime(ctx); closeErr != nil && err == nil {
		err = WrapCommandError(closeErr, "intervalcheck", exitFailure)
	}
	if err != nil {
		printer.Error(err.Error())
	}
	return exitCodeFor(err)
}
