package lamp

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
)

// RFTransmitter runs an external RF sender once per switch, with the
// positional arguments: pin, emitter id, receiver id (-1 for all), on|off.
type RFTransmitter struct {
	Path      string
	Pin       int
	EmitterID int
	Logger    *slog.Logger
}

func (t *RFTransmitter) Transmit(ctx context.Context, receiver int, on bool) error {
	state := "off"
	if on {
		state = "on"
	}

	cmd := exec.CommandContext(ctx, t.Path,
		strconv.Itoa(t.Pin),
		strconv.Itoa(t.EmitterID),
		strconv.Itoa(receiver),
		state,
	)

	t.Logger.Debug("call transmitter", "args", cmd.Args)

	output, err := cmd.CombinedOutput()

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	t.Logger.Info("transmitter finished", "exit_code", exitCode, "output", string(output))

	if err != nil {
		return fmt.Errorf("run %s: %w", t.Path, err)
	}

	return nil
}
