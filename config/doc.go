// Package config handles loading and validation of the task environment.
//
// The environment is loaded from config.yml (or an explicit path), overlaid
// with ETL_* environment variables and validated using struct tags. The keys
// match the environment object the ETL platform hands to each invocation, so
// a JSON environment dump loads unchanged.
package config
