// Package config loads the tokenguard server configuration.
//
// Load order: built-in defaults, then the YAML file, then TOKENGUARD_*
// variables from the process environment or an optional .env file. The
// process environment wins over .env. Signing secrets and the Redis
// password are expected from the environment, not the file.
package config
