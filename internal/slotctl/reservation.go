package slotctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/okian/ghostslot/internal/domain/types"
)

func cohortFlag() cli.Flag {
	return &cli.IntFlag{
		Name:     "cohort",
		Aliases:  []string{"c"},
		Usage:    "Cohort number",
		Required: true,
	}
}

func slotFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "slot",
		Aliases:  []string{"s"},
		Usage:    "Slot id, for example 2.10.003",
		Required: true,
	}
}

func (a *app) queryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Show every slot of a cohort",
		Flags: []cli.Flag{cohortFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			state, err := a.client.Query(ctx, cmd.Int("cohort"))
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}
			return a.render(state, func(w io.Writer) error {
				return stateTable(w, state, time.Now())
			})
		},
	}
}

func (a *app) reserveCommand() *cli.Command {
	return &cli.Command{
		Name:  "reserve",
		Usage: "Reserve the lowest free slot, releasing any slot you already hold",
		Flags: []cli.Flag{cohortFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			slot, err := a.client.Reserve(ctx, cmd.Int("cohort"))
			if err != nil {
				return fmt.Errorf("reserve failed: %w", err)
			}
			return a.renderSlot(slot)
		},
	}
}

func (a *app) releaseCommand() *cli.Command {
	return &cli.Command{
		Name:  "release",
		Usage: "Release a slot you reserved",
		Flags: []cli.Flag{cohortFlag(), slotFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			slot, err := a.client.Release(ctx, cmd.Int("cohort"), cmd.String("slot"))
			if err != nil {
				return fmt.Errorf("release failed: %w", err)
			}
			return a.renderSlot(slot)
		},
	}
}

func (a *app) submitCommand() *cli.Command {
	return &cli.Command{
		Name:  "submit",
		Usage: "Confirm a skillset submission on a reserved slot",
		Flags: []cli.Flag{
			cohortFlag(),
			slotFlag(),
			&cli.StringFlag{
				Name:     "skillset",
				Usage:    "Skillset id being submitted",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.String("skillset") == "" {
				return errors.New("submit requires a non-empty --skillset")
			}
			slot, err := a.client.Submit(ctx, cmd.Int("cohort"), cmd.String("slot"), cmd.String("skillset"))
			if err != nil {
				return fmt.Errorf("submit failed: %w", err)
			}
			return a.renderSlot(slot)
		},
	}
}

func (a *app) renderSlot(slot types.Slot) error {
	return a.render(slot, func(w io.Writer) error {
		_, _ = fmt.Fprintln(w, header("SLOT")+"\t"+header("STATUS")+"\t"+header("EXPIRES")+"\t"+header("SKILLSET"))
		return slotRow(w, slot, time.Now())
	})
}

func stateTable(w io.Writer, state types.ReservationState, now time.Time) error {
	mine := ""
	if state.UserSlot != nil {
		mine = *state.UserSlot
	}
	_, _ = fmt.Fprintf(w, "Cohort %d: %d slots, %s available, %s reserved, %s submitted\n",
		state.Cohort, state.TotalGhostSlots,
		success(state.Available), warning(state.Reserved), failure(state.Submitted))
	_, _ = fmt.Fprintln(w, header("SLOT")+"\t"+header("STATUS")+"\t"+header("EXPIRES")+"\t"+header("SKILLSET"))
	for _, s := range state.Slots {
		if s.ID == mine {
			s.ID += " *"
		}
		if err := slotRow(w, s, now); err != nil {
			return err
		}
	}
	return nil
}

func slotRow(w io.Writer, s types.Slot, now time.Time) error {
	skillset := s.SkillsetID
	if skillset == "" {
		skillset = dim("-")
	}
	_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, statusText(s.Status), countdown(s.ExpiresAt, now), skillset)
	return err
}
