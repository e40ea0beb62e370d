package configs

import "fmt"

// ConfigurationError reports bad input for a single field. It is always
// produced before any OS resource is touched.
type ConfigurationError struct {
	Field  string
	Detail string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return e.Detail
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Detail)
}
