package sync

import "errors"

var (
	// ErrConcurrentModification is returned when the branch advanced
	// between the coordinator's read and its ref update. The caller
	// must refresh its local collection and retry the mutation from
	// scratch; the coordinator never retries or merges on its own.
	ErrConcurrentModification = errors.New("collection was modified concurrently; refresh and retry")

	// ErrCorruptRemoteState is returned when the remote collection
	// document cannot be parsed as the expected structure. The sync
	// attempt is abandoned; nothing is auto-repaired.
	ErrCorruptRemoteState = errors.New("remote collection document is not parseable")

	// ErrNoSuchItem is returned by Update and Delete mutations whose
	// target id is not present in the remote collection.
	ErrNoSuchItem = errors.New("no item with that id in the remote collection")
)
