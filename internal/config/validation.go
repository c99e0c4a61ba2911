package config

import (
	"fmt"
	"net/url"
	"strings"

	"scriptsync/internal/kvstore"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateURL checks that value, when set, is an absolute http(s) URL.
func ValidateURL(field, value string, schemes ...string) error {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return ValidationError{Field: field, Value: value, Message: "must be an absolute URL"}
	}
	if ValidateOneOf(field, u.Scheme, schemes) != nil {
		return ValidationError{Field: field, Value: value, Message: fmt.Sprintf("scheme must be one of: %s", strings.Join(schemes, ", "))}
	}
	return nil
}

// Validate checks the configuration for values the application cannot run with.
func (c Config) Validate() error {
	var errs ValidationErrors

	if err := ValidateOneOf("storage.backend", c.Storage.Backend,
		[]string{kvstore.BackendMemory, kvstore.BackendFile, kvstore.BackendRedis}); err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if c.Storage.Backend == kvstore.BackendRedis && c.Storage.RedisURL == "" {
		errs.Add("storage.redisUrl", "is required for the redis backend")
	}
	if err := ValidateURL("storage.redisUrl", c.Storage.RedisURL, "redis", "rediss"); err != nil {
		errs = append(errs, err.(ValidationError))
	}

	if c.Credentials.HasBearerToken() && (c.Credentials.Username != "" || c.Credentials.Password != "") {
		errs.Add("credentials", "set either username/password or bearerToken, not both")
	}
	if c.Credentials.Password != "" && c.Credentials.Username == "" {
		errs.Add("credentials.username", "is required when a password is set")
	}
	for flag, set := range c.Credentials.Sets {
		if flag == "" || set.Username == "" {
			errs.Add("credentials.sets", "every set needs a non-empty flag and username", flag)
		}
	}
	if c.Credentials.Flag != "" && !c.Credentials.HasBearerToken() {
		if _, ok := c.Credentials.Sets[c.Credentials.Flag]; !ok {
			errs.Add("credentials.flag", "must name an entry of credentials.sets", c.Credentials.Flag)
		}
	}

	if c.Session.TTL <= 0 {
		errs.Add("session.ttl", "must be positive", c.Session.TTL)
	}
	if c.Session.HTTPTimeout <= 0 {
		errs.Add("session.httpTimeout", "must be positive", c.Session.HTTPTimeout)
	}
	if c.Session.RetryDelay < 0 {
		errs.Add("session.retryDelay", "must not be negative", c.Session.RetryDelay)
	}
	if c.Session.CSRFRetries < 0 {
		errs.Add("session.csrfRetries", "must not be negative", c.Session.CSRFRetries)
	}

	if err := ValidateURL("org.helperUrl", c.Org.HelperURL, "http", "https"); err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if c.Org.MaxElementAge <= 0 {
		errs.Add("org.maxElementAge", "must be positive", c.Org.MaxElementAge)
	}
	if c.Org.ValidationConcurrency < 1 {
		errs.Add("org.validationConcurrency", "must be at least 1", c.Org.ValidationConcurrency)
	}

	if err := ValidateOneOf("logLevel", strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "warning", "error"}); err != nil {
		errs = append(errs, err.(ValidationError))
	}

	if !errs.HasErrors() {
		return nil
	}
	return &ConfigurationError{
		ErrorType: "validation",
		Message:   errs.Error(),
		Err:       errs,
	}
}
