// Package config loads docsapi configuration.
//
// Settings start from built-in defaults, are overlaid by an optional YAML file
// named in DOCSAPI_CONFIG_FILE, and finally by DOCSAPI_* environment
// variables:
//
//	DOCSAPI_PORT="8000"
//	DOCSAPI_HEALTH_PORT="9090"
//	DOCSAPI_STORAGE_TYPE="postgres"  # sqlite, postgres
//	DOCSAPI_DATABASE_URL="postgres://localhost/docs?sslmode=disable"
//	DOCSAPI_REDIS_URL="redis://localhost:6379/0"
//	DOCSAPI_QUEUE_TYPE="redis"       # memory, redis
//	DOCSAPI_THROTTLE="memory"        # off, memory, redis
//	DOCSAPI_LOG_LEVEL="info"
//
// The same settings in YAML:
//
//	server:
//	  port: "8000"
//	storage:
//	  type: postgres
//	  dsn: postgres://localhost/docs?sslmode=disable
//	queue:
//	  type: redis
//	  stale_after: 30m
package config
