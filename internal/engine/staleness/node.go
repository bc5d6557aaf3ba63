package staleness

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stamp/internal/adapters/fs"
	"go.trai.ch/stamp/internal/adapters/logger"
	"go.trai.ch/stamp/internal/adapters/stampstore"
	"go.trai.ch/stamp/internal/core/ports"
)

// NodeID is the unique identifier for the staleness cache node.
const NodeID graft.ID = "engine.staleness"

func init() {
	graft.Register(graft.Node[*Cache]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			fs.HasherNodeID,
			stampstore.NodeID,
			fs.VerifierNodeID,
			logger.PortNodeID,
		},
		Run: func(ctx context.Context) (*Cache, error) {
			hasher, err := graft.Dep[ports.Hasher](ctx)
			if err != nil {
				return nil, err
			}
			store, err := graft.Dep[ports.StampStore](ctx)
			if err != nil {
				return nil, err
			}
			verifier, err := graft.Dep[ports.Verifier](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(hasher, store, verifier, log), nil
		},
	})
}
