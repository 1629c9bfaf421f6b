package mapping

import "fmt"

// ConfigError reports a bad piano size, LED range, or distribution
// parameter. It is always returned before any state mutation.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid config: " + e.Reason
}

func invalidConfig(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// RequestError reports a bad mutating request: an override LED index
// outside the configured range, or an unknown MIDI note. The request is
// rejected whole - no partial application.
type RequestError struct {
	Reason string
}

func (e *RequestError) Error() string {
	return "invalid request: " + e.Reason
}

func invalidRequest(format string, args ...any) error {
	return &RequestError{Reason: fmt.Sprintf(format, args...)}
}
