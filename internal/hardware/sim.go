package hardware

import (
	"sync/atomic"

	logx "moodybell/pkg/logx"
)

// Sim logs instead of switching anything. It counts activations so tests
// can assert pulse counts.
type Sim struct {
	log         logx.Logger
	activations atomic.Int64
	on          atomic.Bool
}

func NewSim(log logx.Logger) *Sim { return &Sim{log: log} }

func (s *Sim) Activate() {
	s.activations.Add(1)
	s.on.Store(true)
	s.log.Info("RING! (simulated)")
}

func (s *Sim) Deactivate()     { s.on.Store(false) }
func (s *Sim) Available() bool { return false }
func (s *Sim) Name() string    { return "sim" }
func (s *Sim) Close() error    { return nil }

// Activations returns how many times Activate was called.
func (s *Sim) Activations() int64 { return s.activations.Load() }

// On reports whether the line is currently held active.
func (s *Sim) On() bool { return s.on.Load() }
