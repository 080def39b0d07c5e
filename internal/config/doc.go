// Package config loads and validates application configuration.
//
// Configuration is read from environment variables with the TUBETONE_ prefix
// and, optionally, from a config.yaml file in the working directory.
// Environment variables take precedence. The loaded struct is validated with
// go-playground/validator before being handed to the rest of the app.
package config
