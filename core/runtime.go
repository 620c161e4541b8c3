package core

import (
	"context"
	"log/slog"
	"os"
	"path"
	"reflect"

	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
	"github.com/strandnet/strand/state"
)

func buildLogger(lcfg state.LocalCfg, logLevel slog.Level) (*slog.Logger, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			CustomPrefix: string(lcfg.Id),
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	if lcfg.LogPath != "" {
		err := os.MkdirAll(path.Dir(lcfg.LogPath), 0700)
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(lcfg.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0700)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), nil
}

// Start brings up a node and returns once every module is running. Workers
// keep going in the background until Stop. timing == nil means production
// defaults; harnesses pass compressed intervals.
func Start(ccfg state.CentralCfg, lcfg state.LocalCfg, logLevel slog.Level, timing *state.Timing) (*Node, error) {
	logger, err := buildLogger(lcfg, logLevel)
	if err != nil {
		return nil, err
	}

	tm := state.DefaultTiming()
	if timing != nil {
		tm = *timing
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	s := &state.State{
		Modules: make(map[string]state.Module),
		Env: &state.Env{
			CentralCfg: ccfg,
			LocalCfg:   lcfg,
			Timing:     tm,
			Context:    ctx,
			Cancel:     cancel,
			Log:        logger,
		},
		Neighbours: state.NewNeighbourTable(tm.NeighbourTimeout),
		Routes:     state.NewRouteTable(lcfg.Id),
	}

	s.Log.Debug("init modules")
	if err := initModules(s); err != nil {
		cancel(err)
		stop(s)
		return nil, err
	}
	s.Log.Info("node initialized")
	return &Node{s: s}, nil
}

func initModules(s *state.State) error {
	var modules []state.Module
	modules = append(modules, &Tracer{})
	modules = append(modules, &Forwarder{})
	modules = append(modules, &Transport{})
	modules = append(modules, &Diag{})
	modules = append(modules, &Router{})
	modules = append(modules, &Hello{})
	modules = append(modules, &LinkMgr{})

	// register everything before any Init: link read workers may
	// dispatch to a later module as soon as the first link opens
	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
	}
	for _, module := range modules {
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

func stop(s *state.State) {
	if s.Stopping.Swap(true) {
		return // don't stop twice
	}
	s.Cancel(context.Canceled)
	s.Log.Info("cleaning up modules")
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during stop", "module", moduleName, "error", err)
		}
	}
	s.Log.Info("stopped")
}
