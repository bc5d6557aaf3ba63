// Package staleness decides whether a guarded action must run by comparing
// the digest of its inputs against the digest recorded by its last success.
package staleness

import (
	"context"
	"errors"

	"go.trai.ch/stamp/internal/core/domain"
	"go.trai.ch/stamp/internal/core/ports"
	"go.trai.ch/zerr"
)

// CheckOptions tunes a staleness check.
type CheckOptions struct {
	// Force reports the action stale whatever the stamp says.
	Force bool
	// Outputs must all exist for the action to be fresh.
	Outputs []string
}

// GuardedFunc is the expensive work protected by a stamp.
type GuardedFunc func(ctx context.Context) error

// Cache computes input digests and compares them against stamp files.
//
// A Cache holds no mutable state; it is safe for concurrent use as long as
// every stamp path has a single writer.
type Cache struct {
	hasher   ports.Hasher
	store    ports.StampStore
	verifier ports.Verifier
	logger   ports.Logger
}

// New creates a new Cache.
func New(hasher ports.Hasher, store ports.StampStore, verifier ports.Verifier, logger ports.Logger) *Cache {
	return &Cache{
		hasher:   hasher,
		store:    store,
		verifier: verifier,
		logger:   logger,
	}
}

// ComputeDigest returns the digest of spec.
func (c *Cache) ComputeDigest(spec domain.InputSpec) (domain.Digest, error) {
	return c.hasher.ComputeDigest(spec)
}

// IsStale reports whether the digest of spec differs from the one stored at stampPath.
// A missing stamp is stale. IsStale never writes.
func (c *Cache) IsStale(spec domain.InputSpec, stampPath string) (bool, error) {
	verdict, err := c.Check(spec, stampPath, CheckOptions{})
	if err != nil {
		return false, err
	}
	return verdict.Stale, nil
}

// Check is IsStale with a reason and the digest that a later Commit can reuse.
//
// The digest is computed before anything else, so a missing or unreadable
// input fails the check even when the action is forced or has never run.
func (c *Cache) Check(spec domain.InputSpec, stampPath string, opts CheckOptions) (domain.Verdict, error) {
	current, err := c.hasher.ComputeDigest(spec)
	if err != nil {
		return domain.Verdict{}, err
	}

	previous, err := c.store.Read(stampPath)
	if err != nil {
		return domain.Verdict{}, err
	}

	verdict := domain.Verdict{Current: current, Previous: previous}

	switch {
	case opts.Force:
		verdict.Stale, verdict.Reason = true, domain.ReasonForced
	case !previous.Present:
		verdict.Stale, verdict.Reason = true, domain.ReasonNoStamp
	case previous.Digest != current:
		verdict.Stale, verdict.Reason = true, domain.ReasonDigestChanged
	default:
		ok, err := c.verifier.VerifyOutputs(opts.Outputs)
		if err != nil {
			return domain.Verdict{}, err
		}
		if !ok {
			verdict.Stale, verdict.Reason = true, domain.ReasonOutputsMissing
		} else {
			verdict.Reason = domain.ReasonUpToDate
		}
	}

	c.logger.Debug("checked stamp",
		"stamp", stampPath,
		"stale", verdict.Stale,
		"reason", string(verdict.Reason),
		"digest", current.String(),
	)
	return verdict, nil
}

// CommitDigest recomputes the digest of spec and atomically records it at stampPath.
func (c *Cache) CommitDigest(spec domain.InputSpec, stampPath string) error {
	digest, err := c.hasher.ComputeDigest(spec)
	if err != nil {
		return err
	}
	return c.Commit(digest, stampPath)
}

// Commit atomically records an already computed digest at stampPath.
func (c *Cache) Commit(digest domain.Digest, stampPath string) error {
	if digest.IsZero() {
		return zerr.With(
			errors.Join(domain.ErrStampWriteFailed, zerr.New("refusing to commit an empty digest")),
			"stamp", stampPath,
		)
	}
	if err := c.store.Write(stampPath, digest); err != nil {
		return err
	}
	c.logger.Debug("committed stamp", "stamp", stampPath, "digest", digest.String())
	return nil
}

// RunIfStale runs fn only when the inputs changed since the last successful run.
//
// The digest committed after fn succeeds is the one computed before fn ran,
// so an input edited while fn runs leaves the action stale for the next run.
// When fn fails the previous stamp is kept.
func (c *Cache) RunIfStale(
	ctx context.Context,
	spec domain.InputSpec,
	stampPath string,
	opts CheckOptions,
	fn GuardedFunc,
) (domain.Verdict, error) {
	verdict, err := c.Check(spec, stampPath, opts)
	if err != nil {
		return verdict, err
	}
	if !verdict.Stale {
		return verdict, nil
	}

	if err := ctx.Err(); err != nil {
		return verdict, err
	}

	if err := fn(ctx); err != nil {
		return verdict, err
	}

	return verdict, c.Commit(verdict.Current, stampPath)
}
