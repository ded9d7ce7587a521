// Package config provides environment-based configuration with defaults and
// validation.
package config
