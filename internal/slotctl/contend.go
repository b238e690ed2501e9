package slotctl

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/okian/ghostslot/internal/contention"
)

func (a *app) contendCommand() *cli.Command {
	return &cli.Command{
		Name:  "contend",
		Usage: "Fire concurrent reservations at a cohort and verify no slot is granted twice",
		Flags: []cli.Flag{
			cohortFlag(),
			&cli.IntFlag{
				Name:  "requesters",
				Value: contention.DefaultRequesters,
				Usage: "Number of distinct requesters",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Value: contention.DefaultConcurrency,
				Usage: "Requests in flight at once",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			report, err := contention.Run(ctx, a.client, contention.Config{
				Cohort:      cmd.Int("cohort"),
				Requesters:  cmd.Int("requesters"),
				Concurrency: cmd.Int("concurrency"),
			})
			if err != nil {
				return err
			}
			if err := a.render(report, func(w io.Writer) error { return reportTable(w, report) }); err != nil {
				return err
			}
			return report.Err()
		},
	}
}

func reportTable(w io.Writer, r contention.Report) error {
	rate := 0.0
	if r.Duration > 0 {
		rate = float64(r.Requesters) / r.Duration.Seconds()
	}
	_, _ = fmt.Fprintf(w, "Cohort\t%d\n", r.Cohort)
	_, _ = fmt.Fprintf(w, "Requesters\t%s\n", humanize.Comma(int64(r.Requesters)))
	_, _ = fmt.Fprintf(w, "Available before\t%d\n", r.AvailableBefore)
	_, _ = fmt.Fprintf(w, "Granted\t%s\n", success(len(r.Granted)))
	_, _ = fmt.Fprintf(w, "Pool exhausted\t%s\n", warning(r.Exhausted))
	_, _ = fmt.Fprintf(w, "Failed\t%d\n", len(r.Failures))
	_, _ = fmt.Fprintf(w, "Duration\t%s (%s req/s)\n", r.Duration, humanize.FormatFloat("#,###.#", rate))
	if len(r.Violations) == 0 {
		_, err := fmt.Fprintf(w, "Result\t%s\n", success("no slot granted twice"))
		return err
	}
	for _, v := range r.Violations {
		if _, err := fmt.Fprintf(w, "Violation\t%s\n", failure(v)); err != nil {
			return err
		}
	}
	return nil
}
