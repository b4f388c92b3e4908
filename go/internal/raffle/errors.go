package raffle

import "errors"

var (
	// ErrRestorePending is returned by commands while the operator has not
	// answered the restore prompt.
	ErrRestorePending = errors.New("a saved session is waiting to be restored or discarded")
	// ErrNoPendingRestore is returned by ResolveRestore when there is nothing to resolve.
	ErrNoPendingRestore = errors.New("no saved session to restore")
	// ErrNotReady is returned by Start until both lists are imported.
	ErrNotReady = errors.New("import staff and prizes before starting")
	// ErrNoWinners is returned by Export before the first draw.
	ErrNoWinners = errors.New("no winners to export")
)
