package network

import "fmt"

// InvalidNetworkError reports a malformed or disconnected network. It is
// returned before any solve is attempted.
type InvalidNetworkError struct {
	Reason string
}

func (e *InvalidNetworkError) Error() string {
	return "invalid network: " + e.Reason
}

func invalidf(format string, a ...interface{}) error {
	return &InvalidNetworkError{Reason: fmt.Sprintf(format, a...)}
}
