package stampstore

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/stamp/internal/core/ports"
)

const NodeID graft.ID = "adapter.stamp_store"

func init() {
	graft.Register(graft.Node[ports.StampStore]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.StampStore, error) {
			return NewStore(), nil
		},
	})
}
