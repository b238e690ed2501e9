package slotctl

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v3"
)

func (a *app) cohortsCommand() *cli.Command {
	return &cli.Command{
		Name:  "cohorts",
		Usage: "List cohorts and their slot counts",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cohorts, err := a.client.Cohorts(ctx)
			if err != nil {
				return fmt.Errorf("list cohorts failed: %w", err)
			}
			return a.render(cohorts, func(w io.Writer) error {
				_, _ = fmt.Fprintln(w, header("COHORT")+"\t"+header("SLOTS")+"\t"+header("AVAILABLE")+"\t"+header("RESERVED")+"\t"+header("SUBMITTED"))
				for _, c := range cohorts {
					if _, err := fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\n",
						c.Cohort, c.TotalGhostSlots, c.Available, c.Reserved, c.Submitted); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func (a *app) createCohortCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-cohort",
		Usage: "Create a cohort with a fixed number of ghost slots",
		Flags: []cli.Flag{
			cohortFlag(),
			&cli.IntFlag{
				Name:  "slots",
				Usage: "Number of ghost slots, 0 uses the server default",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			state, err := a.client.CreateCohort(ctx, cmd.Int("cohort"), cmd.Int("slots"))
			if err != nil {
				return fmt.Errorf("create cohort failed: %w", err)
			}
			return a.render(state, func(w io.Writer) error {
				return stateTable(w, state, time.Now())
			})
		},
	}
}
