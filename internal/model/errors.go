package model

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the sentinel matched by every ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError is fatal: the whole run aborts.
type ConfigurationError struct {
	Scenario string
	Class    Class
	Reason   string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Scenario != "" && e.Class != "":
		return fmt.Sprintf("configuration error: scenario %q class %q: %s", e.Scenario, e.Class, e.Reason)
	case e.Scenario != "":
		return fmt.Sprintf("configuration error: scenario %q: %s", e.Scenario, e.Reason)
	default:
		return "configuration error: " + e.Reason
	}
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Configf builds a ConfigurationError with a formatted reason.
func Configf(scenario string, class Class, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Scenario: scenario, Class: class, Reason: fmt.Sprintf(format, args...)}
}

// ReasonEmptyMatrix is the skip reason of a scenario with no class rows.
const ReasonEmptyMatrix = "empty parameter matrix"

// ScenarioSkipped records a scenario that produced no rows. It is recoverable.
type ScenarioSkipped struct {
	Scenario string `json:"scenario"`
	Reason   string `json:"reason"`
}

func (s ScenarioSkipped) Error() string {
	return fmt.Sprintf("scenario %q skipped: %s", s.Scenario, s.Reason)
}
