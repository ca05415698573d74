package ipc

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// AttachWithRetry attaches to the segment for key, waiting for its creator to
// show up. Only absence is retried; any other failure aborts immediately.
// A nil policy uses an exponential backoff capped at roughly ten seconds of
// total waiting.
func AttachWithRetry(key int, policy backoff.BackOff, opts ...Option) (*Segment, error) {
	if policy == nil {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 20 * time.Millisecond
		b.MaxElapsedTime = 10 * time.Second
		policy = b
	}
	var seg *Segment
	op := func() error {
		s, err := AttachSegment(key, opts...)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return err
			}
			return backoff.Permanent(err)
		}
		seg = s
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return seg, nil
}
