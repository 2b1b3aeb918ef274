package model

import "fmt"

// ConfigurationError reports an unusable setting, such as an unrecognized
// match format.
type ConfigurationError struct {
	Field string
	Value string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Msg)
	}
	return fmt.Sprintf("unrecognized %s %q", e.Field, e.Value)
}
