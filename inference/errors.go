package inference

import "errors"

// Error kinds returned by backends and the executor. Match them with errors.Is.
var (
	// ErrTransport means the endpoint was unreachable or spoke another protocol.
	ErrTransport = errors.New("transport failure")
	// ErrConfiguration means the client was built with an invalid protocol selector.
	ErrConfiguration = errors.New("configuration error")
	// ErrModelNotFound means the server does not know the requested model.
	ErrModelNotFound = errors.New("model not found")
	// ErrInference means the server rejected or could not complete a request,
	// or the expected output tensor was missing.
	ErrInference = errors.New("inference failure")
)
