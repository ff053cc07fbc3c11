package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const (
	exitFailure     = 1
	exitBatchFailed = 2
)

// batchFailedError reports that the batch ran to the end but some APIs failed.
type batchFailedError struct {
	failed int
}

func (e *batchFailedError) Error() string {
	return fmt.Sprintf("%d of the selected apis failed", e.failed)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var batchErr *batchFailedError
	if errors.As(err, &batchErr) {
		return exitBatchFailed
	}
	return exitFailure
}
