package llm

import "errors"

var (
	// ErrEmbeddingUnavailable is returned when the embedding backend cannot be
	// reached or answers with a server-side failure. Callers fall back to
	// degraded behavior (e.g. full-schema selection) rather than aborting.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

	// ErrMalformedInput is returned when the embedding backend rejects the
	// input itself (client-side error). Retrying the same input will not help.
	ErrMalformedInput = errors.New("malformed embedding input")
)
