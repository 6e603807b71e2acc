package simd

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prtslab/prts-console/internal/models"
)

var (
	genMethods    = []string{"SSH", "HTTP", "SMB", "RDP", "FTP"}
	genLocations  = []string{"Shanghai, CN", "Moscow, RU", "California, US", "London, UK", "Tokyo, JP"}
	genSeverities = []string{"low", "medium", "high", "critical"}
)

// StartAttackGenerator emits a random attack event at a jittered interval
// until ctx is cancelled. Used by cmd/simd for live demos.
func (s *Server) StartAttackGenerator(ctx context.Context) {
	go func() {
		for {
			delay := time.Duration(rand.Intn(5)+2) * time.Second
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			attack := s.Store.AddAttack(models.AttackLog{
				SourceIP: fmt.Sprintf("%d.%d.%d.%d",
					rand.Intn(223)+1, rand.Intn(255), rand.Intn(255), rand.Intn(254)+1),
				Location: genLocations[rand.Intn(len(genLocations))],
				Method:   genMethods[rand.Intn(len(genMethods))],
				Payload:  "Simulated attack payload",
				Severity: genSeverities[rand.Intn(len(genSeverities))],
				Status:   "monitored",
			})
			s.Hub.BroadcastFrame(models.FrameAttackEvent, attack)
		}
	}()
}
