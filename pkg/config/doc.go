// Package config loads hjstore configuration.
//
// Configuration is resolved in order: built-in defaults, an optional YAML
// file, then environment variables. The result is validated with struct
// tags and a few cross-field checks before use.
//
// # Environment
//
//	HJSTORE_BACKEND          sqlite or rest
//	HJSTORE_SQLITE_PATH      path of the SQLite database
//	HJSTORE_REST_URL         PostgREST project URL
//	HJSTORE_REST_API_KEY     API key for the REST backend
//	HJSTORE_REST_SCHEMA      database schema exposed by the REST backend
//	HJSTORE_METRICS_ADDRESS  listen address of the metrics endpoint
//	LOG_LEVEL                log level (trace, debug, info, warn, error)
//
// # Example file
//
//	backend: sqlite
//	sqlite:
//	  path: ./data/hjstore.db
//	telemetry:
//	  log_level: info
//	  metrics_address: ":9090"
package config
