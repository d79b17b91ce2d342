// Package config provides YAML configuration loading and validation for
// the streaming transcription service.
package config
