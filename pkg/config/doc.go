// Package config loads typed configuration structs from environment
// variables.
//
// Each subsystem declares its own Config struct with env tags
// (github.com/caarlos0/env) and loads it through the generic Load function.
// Parsed configs are cached per type, so independent components can load
// the same struct without re-reading the environment. Local development is
// supported through .env files via github.com/joho/godotenv.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
package config
