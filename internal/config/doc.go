// Package config loads identity-mcp configuration.
//
// Values are resolved in three layers, later layers winning:
//
//  1. built-in defaults
//  2. an optional YAML profile passed with --config
//  3. environment variables, including a .env file found in the working
//     directory or any parent
//
// Command-line flags are applied on top by the cmd package.
//
// Required values are checked by Validate, which reports every missing
// variable at once through *MissingError.
package config
