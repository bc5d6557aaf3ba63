package domain

// StampRecord is the persisted digest of the last successful run of a guarded action.
type StampRecord struct {
	Path   string
	Digest Digest
	// Present is false when no stamp file exists yet.
	Present bool
}

// Reason explains a staleness verdict.
type Reason string

const (
	// ReasonUpToDate means the stored digest matches the current inputs.
	ReasonUpToDate Reason = "up-to-date"
	// ReasonNoStamp means no stamp has been committed yet.
	ReasonNoStamp Reason = "no-stamp"
	// ReasonDigestChanged means the inputs changed since the last commit.
	ReasonDigestChanged Reason = "digest-changed"
	// ReasonOutputsMissing means a declared output of the action is gone.
	ReasonOutputsMissing Reason = "outputs-missing"
	// ReasonForced means the caller asked for the action to run regardless.
	ReasonForced Reason = "forced"
)

// Verdict is the outcome of a staleness check.
type Verdict struct {
	Stale  bool
	Reason Reason
	// Current is the digest of the inputs at check time. It can be committed
	// without recomputation once the guarded action succeeds.
	Current  Digest
	Previous StampRecord
}
