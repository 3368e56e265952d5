// Package config handles configuration loading for taskchat.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. The package provides validation and sensible defaults.
//
// # Configuration File
//
//	backend:
//	  url: "https://tasks.example.com/api/chat"
//	  timeout: 30s
//	store:
//	  backend: sqlite          # sqlite, bolt, redis, memory
//	  path: "~/.local/share/taskchat/sessions.db"
//	  namespace: taskchat
//	session:
//	  user_scope: "${USER}"
//	logging:
//	  level: info
//	  format: text
//
// # Environment Variable Expansion
//
// Values can reference environment variables with ${VAR_NAME}; unset
// variables expand to the empty string.
//
// # Duration Parsing
//
// Duration fields accept Go duration strings ("30s", "2m") and are parsed
// into time.Duration values after unmarshaling.
package config
