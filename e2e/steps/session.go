// Package steps holds what the feature step packages share: the session they
// drive and a poller for effects that land asynchronously.
package steps

import (
	"context"
	"fmt"
	"time"
)

// Session is one scenario's HTTP conversation with a running server.
type Session interface {
	Get(path string) error
	Post(path string, body any) error

	// SignIn mints an operator token carrying scopes; SignOut drops it.
	SignIn(ctx context.Context, scopes ...string) error
	SignOut()

	Status() int
	Body() []byte
	Field(path string) (any, error)

	Remember(key, value string)
	Recall(key string) (string, error)
}

const (
	pollEvery   = 100 * time.Millisecond
	pollTimeout = 5 * time.Second
)

// Eventually repeats fetch until done reports true or the timeout passes.
// Audit persistence and stack evaluation both trail the request that caused
// them.
func Eventually(ctx context.Context, s Session, fetch func() error, done func() bool, what string) error {
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()
	tick := time.NewTicker(pollEvery)
	defer tick.Stop()
	for {
		if err := fetch(); err != nil {
			return err
		}
		if done() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: gave up after %s; last body %s", what, pollTimeout, s.Body())
		case <-tick.C:
		}
	}
}
