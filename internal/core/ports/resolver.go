package ports

// InputResolver defines the interface for expanding input patterns into paths.
//
//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type InputResolver interface {
	// ResolveInputs expands patterns relative to root, preserving declared order.
	ResolveInputs(patterns []string, root string) ([]string, error)
}
