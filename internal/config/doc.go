// Package config provides environment-based configuration.
//
// Loads from .env file (godotenv), maps to Config struct via go-simpler/env
// struct tags. Knows the fixed set of recognized Gemini API key variables and
// the gRPC build flags exported for child builds.
package config
