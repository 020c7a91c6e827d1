package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/fleetdeck/fleetdeck/internal/batch"
	"github.com/fleetdeck/fleetdeck/internal/cli"
	"github.com/fleetdeck/fleetdeck/internal/engine"
	"github.com/fleetdeck/fleetdeck/internal/model"
)

// runBatchFlow drives one bulk action through its phases: confirm with
// warnings, processing with a live progress bar, done with a retry loop over
// only the failed subset. Cancellation via interrupt lands at the next group
// boundary; in-flight calls of the current group still settle.
func runBatchFlow(ctx context.Context, eng *engine.Engine, targets []model.Candidate, action batch.Action, limit int, subject string, assumeYes bool) error {
	if len(targets) == 0 {
		fmt.Println(cli.FormatInfo("nothing eligible to process"))
		return nil
	}

	run := batch.NewRun(targets)

	// Confirm phase: no network activity until the operator agrees.
	fmt.Println(cli.FormatTitle(fmt.Sprintf("%s: %d items selected", subject, len(targets))))
	for _, warning := range batch.Warnings(targets) {
		fmt.Println(cli.FormatWarning(warning))
	}
	if !assumeYes {
		ok, err := cli.Confirm(ctx, os.Stdin, os.Stdout, fmt.Sprintf("Process %d items", len(targets)))
		if err != nil {
			if errors.Is(err, cli.ErrInputCancelled) {
				return nil
			}
			return err
		}
		if !ok {
			fmt.Println(cli.SubtleStyle.Render("aborted"))
			return nil
		}
	}

	orch := batch.New(limit)
	if err := executeWithProgress(ctx, orch, run, action, subject, len(targets), false); err != nil {
		return err
	}

	for {
		p := run.Progress()
		if p.Failed == 0 {
			break
		}

		printFailures(run)

		if assumeYes {
			break
		}
		ok, err := cli.Confirm(ctx, os.Stdin, os.Stdout, fmt.Sprintf("Retry %d failed items", p.Failed))
		if err != nil || !ok {
			break
		}
		if err := executeWithProgress(ctx, orch, run, action, subject, p.Failed, true); err != nil {
			return err
		}
	}

	eng.ReportRun(run, subject)
	return nil
}

func executeWithProgress(ctx context.Context, orch *batch.Orchestrator, run *batch.Run, action batch.Action, subject string, total int, retry bool) error {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(subject))

	settledBefore := 0
	if retry {
		// On a retry only the re-enqueued subset moves; settled successes
		// stay where they are and must not advance the bar.
		p := run.Progress()
		settledBefore = p.Succeeded
	}
	orch.OnGroup = func(p batch.Progress) {
		_ = bar.Set(p.Succeeded + p.Failed - settledBefore)
	}

	var err error
	if retry {
		err = orch.RetryFailed(ctx, run, action)
	} else {
		err = orch.Execute(ctx, run, action)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	return err
}

// printFailures lists each failed item with its recorded error label.
func printFailures(run *batch.Run) {
	results := run.Snapshot()
	for _, c := range run.Targets() {
		id := c.Identity()
		if results[id] != batch.StatusFailed {
			continue
		}
		reason := run.FailureReason(id)
		if reason == "" {
			reason = "unknown error"
		}
		fmt.Println(cli.FormatError(fmt.Sprintf("%s: %s", c.DisplayName(), reason)))
	}
}
