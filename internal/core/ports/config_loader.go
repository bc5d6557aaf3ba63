package ports

import "go.trai.ch/stamp/internal/core/domain"

// ConfigLoader defines the interface for loading the action configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration file at path and returns the validated action graph.
	Load(path string) (*domain.Graph, error)
}
