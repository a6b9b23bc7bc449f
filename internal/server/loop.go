package server

import (
	"context"
	"time"
)

// Source is the reading side of the IO channels.
type Source interface {
	ReadLines() ([]string, error)
	CheckLiveness() error
}

// Run feeds lines from src to e until a fatal error, QUIT or ctx ends it.
// An empty read sleeps for poll; after maxWait without input the liveness
// check runs.
func Run(ctx context.Context, e *Engine, src Source, poll, maxWait time.Duration) error {
	timer := time.NewTimer(poll)
	defer timer.Stop()

	var idle time.Duration
	for {
		lines, err := src.ReadLines()
		if err != nil {
			return err
		}
		for _, line := range lines {
			if err := e.Obey(line); err != nil {
				return err
			}
		}
		if len(lines) > 0 {
			idle = 0
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		if idle >= maxWait {
			if err := src.CheckLiveness(); err != nil {
				return err
			}
			idle = 0
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(poll)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		idle += poll
	}
}
