package config

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "peer_wait.interval_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// hexColorRegex matches #RGB and #RRGGBB
var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// IsValidColor reports whether color is a hex color or an ANSI index 0..255
func IsValidColor(color string) bool {
	if hexColorRegex.MatchString(color) {
		return true
	}
	n, err := strconv.Atoi(color)
	return err == nil && n >= 0 && n <= 255
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateCast()...)
	errors = append(errors, c.validateNetwork()...)
	errors = append(errors, c.validatePeerWait()...)
	errors = append(errors, c.validateTimeouts()...)
	errors = append(errors, c.validateScript()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateCast validates the closed cast list
func (c *Config) validateCast() []ValidationError {
	var errors []ValidationError

	if len(c.Cast) == 0 {
		return []ValidationError{{
			Field:   "cast",
			Value:   c.Cast,
			Message: "must list at least one actor",
		}}
	}

	names := make(map[string]bool, len(c.Cast))
	ports := make(map[int]bool, len(c.Cast))
	for i, m := range c.Cast {
		field := fmt.Sprintf("cast[%d]", i)

		if strings.TrimSpace(m.Name) == "" {
			errors = append(errors, ValidationError{
				Field:   field + ".name",
				Value:   m.Name,
				Message: "must not be empty",
			})
		} else if names[m.Name] {
			errors = append(errors, ValidationError{
				Field:   field + ".name",
				Value:   m.Name,
				Message: "duplicates another cast member",
			})
		}
		names[m.Name] = true

		if m.Port < 1 || m.Port > 65535 {
			errors = append(errors, ValidationError{
				Field:   field + ".port",
				Value:   m.Port,
				Message: "must be between 1 and 65535",
			})
		} else if ports[m.Port] {
			errors = append(errors, ValidationError{
				Field:   field + ".port",
				Value:   m.Port,
				Message: "duplicates another cast member",
			})
		}
		ports[m.Port] = true

		if m.Color != "" && !IsValidColor(m.Color) {
			errors = append(errors, ValidationError{
				Field:   field + ".color",
				Value:   m.Color,
				Message: "must be #RGB, #RRGGBB or an ANSI index 0-255",
			})
		}
	}

	return errors
}

// validateNetwork validates the NetworkConfig
func (c *Config) validateNetwork() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Network.Host) == "" {
		errors = append(errors, ValidationError{
			Field:   "network.host",
			Value:   c.Network.Host,
			Message: "must not be empty",
		})
	}
	if c.Network.DialTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "network.dial_timeout_ms",
			Value:   c.Network.DialTimeoutMs,
			Message: "must be positive",
		})
	}
	if c.Network.HandshakeTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "network.handshake_timeout_ms",
			Value:   c.Network.HandshakeTimeoutMs,
			Message: "must be positive",
		})
	}

	return errors
}

// validatePeerWait validates the PeerWaitConfig
func (c *Config) validatePeerWait() []ValidationError {
	var errors []ValidationError

	if c.PeerWait.IntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "peer_wait.interval_ms",
			Value:   c.PeerWait.IntervalMs,
			Message: "must be positive",
		})
	}
	if c.PeerWait.RedialRounds < 1 {
		errors = append(errors, ValidationError{
			Field:   "peer_wait.redial_rounds",
			Value:   c.PeerWait.RedialRounds,
			Message: "must be at least 1",
		})
	}
	// The overall bound is mandatory: an unbounded peer wait can block forever
	if c.PeerWait.TimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "peer_wait.timeout_ms",
			Value:   c.PeerWait.TimeoutMs,
			Message: "must be positive",
		})
	}
	if c.PeerWait.MaxRounds < 0 {
		errors = append(errors, ValidationError{
			Field:   "peer_wait.max_rounds",
			Value:   c.PeerWait.MaxRounds,
			Message: "must be non-negative (0 = no cap)",
		})
	}

	return errors
}

// validateTimeouts validates the startup and conversation timeouts
func (c *Config) validateTimeouts() []ValidationError {
	var errors []ValidationError

	if c.Startup.TimeoutMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "startup.timeout_ms",
			Value:   c.Startup.TimeoutMs,
			Message: "must be non-negative (0 = unbounded)",
		})
	}
	if c.Conversation.ConfirmTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "conversation.confirm_timeout_ms",
			Value:   c.Conversation.ConfirmTimeoutMs,
			Message: "must be positive",
		})
	}

	return errors
}

// validateScript validates the ScriptConfig
func (c *Config) validateScript() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Script.Dir) == "" {
		errors = append(errors, ValidationError{
			Field:   "script.dir",
			Value:   c.Script.Dir,
			Message: "must not be empty",
		})
	}
	if c.Script.Episode < 0 {
		errors = append(errors, ValidationError{
			Field:   "script.episode",
			Value:   c.Script.Episode,
			Message: "must be non-negative",
		})
	}
	if c.Script.Act < 0 {
		errors = append(errors, ValidationError{
			Field:   "script.act",
			Value:   c.Script.Act,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
