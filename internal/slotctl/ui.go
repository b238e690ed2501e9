package slotctl

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/okian/ghostslot/internal/domain/model"
)

var (
	success = color.New(color.FgGreen).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
	header  = color.New(color.FgCyan, color.Bold).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
)

// configureColors sets up color output based on CLI flags.
func configureColors(cmd *cli.Command) {
	if cmd.Bool("no-color") {
		color.NoColor = true
	}
}

func statusText(s model.Status) string {
	switch s {
	case model.StatusAvailable:
		return success(string(s))
	case model.StatusReserved:
		return warning(string(s))
	case model.StatusSubmitted:
		return failure(string(s))
	}
	return string(s)
}

// countdown renders an epoch-seconds deadline relative to now.
func countdown(expiresAt int64, now time.Time) string {
	if expiresAt == 0 {
		return dim("-")
	}
	deadline := time.Unix(expiresAt, 0)
	if !deadline.After(now) {
		return failure("expired " + humanize.RelTime(deadline, now, "ago", "from now"))
	}
	return "expires " + humanize.RelTime(deadline, now, "ago", "from now")
}
