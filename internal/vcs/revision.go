package vcs

// NormalizeIndex maps a slice-style index onto [0, n). Non-negative indices
// count from the first commit and negative ones from the latest, so -1 is the
// newest of n commits. It reports false when index is outside [-n, n-1].
func NormalizeIndex(index, n int) (int, bool) {
	if index < 0 {
		index += n
	}
	if index < 0 || index >= n {
		return 0, false
	}
	return index, true
}

// RevisionID returns the revision at a slice-style index, or NoRevision when
// the index is out of range or the backend keeps no history.
func (a *Adapter) RevisionID(index int) (Revision, error) {
	return a.backend.RevisionID(index)
}

// LookupRevision is RevisionID for an optional index: nil means NoRevision.
func (a *Adapter) LookupRevision(index *int) (Revision, error) {
	if index == nil {
		return NoRevision, nil
	}
	return a.RevisionID(*index)
}
