// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"

	"go.trai.ch/stamp/internal/core/domain"
)

// Executor defines the interface for running the command of a guarded action.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the action's command, streaming its output to stdout and stderr.
	//
	// It returns an error if the command cannot be started or exits non-zero.
	Execute(ctx context.Context, action *domain.Action, stdout, stderr io.Writer) error
}
