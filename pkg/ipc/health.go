package ipc

import (
	"github.com/heptiolabs/healthcheck"

	"github.com/shanewas/posix-ipc-go/internal/sysv"
)

// FacilityCheck probes the System V IPC facility by creating and immediately
// removing a private throwaway segment. Suitable as a liveness check on a
// healthcheck.Handler.
func FacilityCheck() healthcheck.Check {
	return func() error {
		id, err := sysv.ShmCreatePrivate(minPlausibleSize)
		if err != nil {
			return classify("ipc facility check", err)
		}
		if err := sysv.ShmRemove(id); err != nil {
			return classify("ipc facility check", err)
		}
		return nil
	}
}

// SegmentCheck reports healthy while the segment for key exists and answers
// introspection. Useful as a readiness check for processes that depend on a
// peer-created segment.
func SegmentCheck(key int) healthcheck.Check {
	return func() error {
		id, err := sysv.ShmLookup(key)
		if err != nil {
			return classify("segment check", err)
		}
		if _, err := sysv.ShmSize(id); err != nil {
			return classify("segment check", err)
		}
		return nil
	}
}
