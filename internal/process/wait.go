package process

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/apiproxy/nodeserver/internal/sentinel"
)

// ErrPollNotPositive is returned by WaitHealthy for a non-positive interval
// or timeout.
const ErrPollNotPositive = sentinel.Error("poll interval and timeout must be positive")

// ErrProcessExited is returned by WaitHealthy when the server exits before
// it answers a health check.
const ErrProcessExited = sentinel.Error("process exited before becoming healthy")

// HealthCheck reports whether the server answers its health endpoint.
type HealthCheck func(ctx context.Context) bool

// HealthPoll configures WaitHealthy.
type HealthPoll struct {
	Interval time.Duration
	Timeout  time.Duration
	URL      string // named in errors
}

// WaitHealthy runs healthy every Interval until it returns true or Timeout
// elapses. A close of exited ends the wait with ErrProcessExited before the
// next check; a nil exited never does.
func WaitHealthy(ctx context.Context, poll HealthPoll, exited <-chan struct{}, healthy HealthCheck) error {
	if poll.Interval <= 0 || poll.Timeout <= 0 {
		return fmt.Errorf("%w: interval %v, timeout %v", ErrPollNotPositive, poll.Interval, poll.Timeout)
	}

	err := wait.PollUntilContextTimeout(ctx, poll.Interval, poll.Timeout, true,
		func(ctx context.Context) (bool, error) {
			select {
			case <-exited:
				return false, ErrProcessExited
			default:
				return healthy(ctx), nil
			}
		})
	if err != nil {
		return fmt.Errorf("wait for health at %s: %w", poll.URL, err)
	}
	return nil
}
