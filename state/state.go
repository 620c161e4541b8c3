package state

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

type Module interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// State is the root object shared by every module. The shared tables carry
// their own locks; everything else is written once at startup.
type State struct {
	*Env
	Modules    map[string]Module
	Neighbours *NeighbourTable
	Routes     *RouteTable
	Stopping   atomic.Bool
}

// Env can be read from any goroutine.
type Env struct {
	CentralCfg
	LocalCfg
	Timing  Timing
	Context context.Context
	Cancel  context.CancelCauseFunc
	Log     *slog.Logger
}

func (e *Env) SelfId() NodeId {
	return e.LocalCfg.Id
}

func (e *Env) repeatedTask(fun func() error, delay time.Duration) {
	ticker := time.NewTicker(delay)
	defer ticker.Stop()
	for {
		if err := fun(); err != nil {
			e.Log.Error("periodic task failed", "err", err)
		}
		select {
		case <-e.Context.Done():
			return
		case <-ticker.C:
		}
	}
}

// RepeatTask runs fun immediately and then every delay until the node stops.
// Errors are logged, they never stop the loop.
func (e *Env) RepeatTask(fun func() error, delay time.Duration) {
	go e.repeatedTask(fun, delay)
}
