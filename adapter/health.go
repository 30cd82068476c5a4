// Package adapter bridges surface sessions to external monitoring systems.
package adapter

import (
	"fmt"

	"github.com/heptiolabs/healthcheck"

	"github.com/srediag/surface-shm/surface"
)

// NewHealthHandler builds an HTTP health handler for one producer process.
//
// Liveness runs the surface validity check, so a stale or poisoned session
// flips the process unhealthy and lets an orchestrator restart it. Readiness
// tracks free slots in the ring: a producer with no claimable slot cannot
// make progress and should be taken out of rotation until the compositor
// catches up.
func NewHealthHandler(sessions map[string]*surface.Session, rings map[string]*surface.SharedRing) healthcheck.Handler {
	h := healthcheck.NewHandler()
	for name, s := range sessions {
		s := s
		h.AddLivenessCheck(fmt.Sprintf("surface-identity-%s", name), func() error {
			return s.Validate()
		})
	}
	for name, r := range rings {
		r := r
		h.AddReadinessCheck(fmt.Sprintf("surface-free-slots-%s", name), func() error {
			if r.FreeCount() == 0 {
				return fmt.Errorf("ring %s has no free slot", name)
			}
			return nil
		})
	}
	return h
}
