// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/stamp/internal/adapters/config"
	_ "go.trai.ch/stamp/internal/adapters/fs"
	_ "go.trai.ch/stamp/internal/adapters/logger"
	_ "go.trai.ch/stamp/internal/adapters/shell"
	_ "go.trai.ch/stamp/internal/adapters/stampstore"
	_ "go.trai.ch/stamp/internal/adapters/telemetry/progrock"
	// Register app and engine nodes.
	_ "go.trai.ch/stamp/internal/app"
	_ "go.trai.ch/stamp/internal/engine/scheduler"
	_ "go.trai.ch/stamp/internal/engine/staleness"
)
