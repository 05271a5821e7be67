package chat

import "errors"

var (
	// ErrResponseInFlight is returned by Submit while a response is streaming.
	ErrResponseInFlight = errors.New("a response is already in progress")
	// ErrEmptyInput is returned by Submit when the composition buffer is blank.
	ErrEmptyInput = errors.New("message is empty")
	// ErrNothingToCancel is returned by Cancel when no response is in flight.
	ErrNothingToCancel = errors.New("no response in progress")
	// ErrArtifactNotFound is returned when an artifact does not exist.
	// Artifact stores return it from Fetch and Versions as well.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrVersionNotFound is returned when navigating to a version the
	// previewed artifact does not have.
	ErrVersionNotFound = errors.New("artifact version not found")
	// ErrNoArtifactStore is returned by artifact actions when the store was
	// built without an artifact backend.
	ErrNoArtifactStore = errors.New("no artifact store configured")
)
