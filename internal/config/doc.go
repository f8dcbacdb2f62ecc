// Package config provides configuration types and loading for the
// key-value cache facade.
//
// Configuration is YAML with ${VAR} and ${VAR:-default} environment
// substitution. Unset fields fall back to DefaultConfig:
//
//	redis:
//	  url: ${REDIS_URL:-redis://localhost:6379/0}
//	  poolSize: 10
//	fetch:
//	  ttl: 10s
//	  countMode: fetch
//	  singleFlight: true
//	http:
//	  timeout: 20s
//	  retry:
//	    maxRetries: 2
//	logging:
//	  level: info
//	  format: json
//
// Load returns a configuration that has already passed Validate.
package config
