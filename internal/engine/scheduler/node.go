package scheduler

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stamp/internal/adapters/logger"
	"go.trai.ch/stamp/internal/adapters/shell"
	"go.trai.ch/stamp/internal/adapters/telemetry/progrock"
	"go.trai.ch/stamp/internal/core/ports"
	"go.trai.ch/stamp/internal/engine/staleness"
)

// NodeID is the unique identifier for the scheduler Graft node.
const NodeID graft.ID = "engine.scheduler"

func init() {
	graft.Register(graft.Node[*Scheduler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			staleness.NodeID,
			shell.NodeID,
			progrock.NodeID,
			logger.PortNodeID,
		},
		Run: func(ctx context.Context) (*Scheduler, error) {
			cache, err := graft.Dep[*staleness.Cache](ctx)
			if err != nil {
				return nil, err
			}

			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}

			tel, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return NewScheduler(cache, executor, tel, log), nil
		},
	})
}
