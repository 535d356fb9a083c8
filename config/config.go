// Package config loads and validates the curl host module configuration.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	domainerrors "github.com/RekGRpth/pg-curl-sub000/domain/errors"
	"github.com/go-playground/validator/v10"
)

// Defaults.
const (
	DefaultModuleName      = "curl_host"
	DefaultMaxResponseSize = 64 << 20
	DefaultMaxRequestSize  = 1 << 20
	DefaultMaxHeaders      = 1024
)

// Config configures a host module.
type Config struct {
	// ModuleName is the import module name guest code uses for the curl functions.
	ModuleName string `json:"module_name" validate:"required"`

	// DefaultUserAgent is applied at init and reset. Empty sends no User-Agent.
	DefaultUserAgent string `json:"default_user_agent"`

	// MaxResponseSize bounds the write buffer in bytes; 0 is unbounded.
	MaxResponseSize int `json:"max_response_size" validate:"gte=0"`

	// MaxRequestSize bounds a single guest request payload in bytes; 0 is unbounded.
	// Guest payload lengths are 32-bit, so the bound must fit in a uint32.
	MaxRequestSize int `json:"max_request_size" validate:"gte=0,lte=4294967295"`

	// MaxHeaders is the header list capacity.
	MaxHeaders int `json:"max_headers" validate:"gte=1"`

	// HandleInterrupt installs the SIGINT bridge for the module's lifetime.
	HandleInterrupt bool `json:"handle_interrupt"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		ModuleName:      DefaultModuleName,
		MaxResponseSize: DefaultMaxResponseSize,
		MaxRequestSize:  DefaultMaxRequestSize,
		MaxHeaders:      DefaultMaxHeaders,
		HandleInterrupt: true,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks c against its field constraints. The first violation is
// returned as a *errors.ConfigError naming the field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &domainerrors.ConfigError{
			Field: fe.Field(),
			Err:   fmt.Errorf("failed on '%s' constraint (value %v)", fe.Tag(), fe.Value()),
		}
	}
	return &domainerrors.ConfigError{Err: err}
}

// FromMap builds a Config from decoded JSON or YAML, starting from Default.
// Present keys of the wrong type are errors; absent keys keep their default.
func FromMap(m map[string]any) (Config, error) {
	c := Default()
	var err error

	if c.ModuleName, err = OptionalString(m, "module_name", c.ModuleName); err != nil {
		return Config{}, err
	}
	if c.DefaultUserAgent, err = OptionalString(m, "default_user_agent", c.DefaultUserAgent); err != nil {
		return Config{}, err
	}
	if c.MaxResponseSize, err = OptionalInt(m, "max_response_size", c.MaxResponseSize); err != nil {
		return Config{}, err
	}
	if c.MaxRequestSize, err = OptionalInt(m, "max_request_size", c.MaxRequestSize); err != nil {
		return Config{}, err
	}
	if c.MaxHeaders, err = OptionalInt(m, "max_headers", c.MaxHeaders); err != nil {
		return Config{}, err
	}
	if c.HandleInterrupt, err = OptionalBool(m, "handle_interrupt", c.HandleInterrupt); err != nil {
		return Config{}, err
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// RequireString returns the string value of a key in the config map.
// It returns an error if the key is missing, not a string, or empty.
func RequireString(cfg map[string]any, key string) (string, error) {
	val, ok := cfg[key]
	if !ok {
		return "", &domainerrors.ConfigError{Field: key, Err: fmt.Errorf("missing required field")}
	}
	str, ok := val.(string)
	if !ok || str == "" {
		return "", &domainerrors.ConfigError{Field: key, Err: fmt.Errorf("must be a non-empty string")}
	}
	return str, nil
}

// OptionalString returns the string value of a key, or defaultVal when the key
// is missing.
func OptionalString(cfg map[string]any, key, defaultVal string) (string, error) {
	val, ok := cfg[key]
	if !ok || val == nil {
		return defaultVal, nil
	}
	str, ok := val.(string)
	if !ok {
		return "", &domainerrors.ConfigError{Field: key, Err: fmt.Errorf("must be a string, got %T", val)}
	}
	return str, nil
}

// OptionalInt returns the integer value of a key, or defaultVal when the key is
// missing. Handles float64 (JSON default), int and int64.
func OptionalInt(cfg map[string]any, key string, defaultVal int) (int, error) {
	val, ok := cfg[key]
	if !ok || val == nil {
		return defaultVal, nil
	}
	switch n := val.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, &domainerrors.ConfigError{Field: key, Err: fmt.Errorf("must be an integer, got %v", n)}
		}
		return int(n), nil
	default:
		return 0, &domainerrors.ConfigError{Field: key, Err: fmt.Errorf("must be a number, got %T", val)}
	}
}

// OptionalBool returns the bool value of a key, or defaultVal when the key is
// missing.
func OptionalBool(cfg map[string]any, key string, defaultVal bool) (bool, error) {
	val, ok := cfg[key]
	if !ok || val == nil {
		return defaultVal, nil
	}
	b, ok := val.(bool)
	if !ok {
		return false, &domainerrors.ConfigError{Field: key, Err: fmt.Errorf("must be a boolean, got %T", val)}
	}
	return b, nil
}
