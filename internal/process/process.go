package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// killDrainTimeout bounds the wait for the reaper after SIGKILL. SIGKILL
// cannot be caught, so this only fires if cmd.Wait is stuck on I/O.
const killDrainTimeout = 10 * time.Second

// drainDone reads from done, giving up after timeout. It reports whether a
// value arrived and, if so, the cmd.Wait error.
func drainDone(done <-chan error, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-done:
		return true, err
	case <-t.C:
		return false, nil
	}
}

// killWithDone force-terminates cmd and collects its exit through done,
// which must be fed by the single cmd.Wait goroutine started in Spawn.
// "Process already finished" from Kill is expected when the child crashed
// earlier and is not reported.
func killWithDone(cmd *exec.Cmd, done <-chan error, name string) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if done == nil {
		return fmt.Errorf("%s: done channel must not be nil", name)
	}

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("%s: kill: %w", name, err)
	}

	ok, waitErr := drainDone(done, killDrainTimeout)
	if !ok {
		return fmt.Errorf("%s: timed out waiting for process to exit after SIGKILL", name)
	}
	return expectKilledExit(waitErr, name)
}

// expectKilledExit interprets the cmd.Wait result after a kill. Any
// *exec.ExitError means the process is gone, whether it died from our
// SIGKILL or had already exited with its own status. Anything else (for
// example a copy goroutine failing) is reported.
func expectKilledExit(err error, name string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
