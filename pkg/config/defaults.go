package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "hospiq"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Appointments must be booked at least this far ahead.
	DefaultBookingLeadTime = 30 * time.Minute

	OracleModeHeuristic = "heuristic"
	OracleModeExternal  = "external"

	DefaultOracleMode    = OracleModeHeuristic
	DefaultOracleTimeout = 300 * time.Millisecond

	DefaultKafkaTopic = "hospiq.tickets"

	DefaultHospitalCacheTTL = 5 * time.Minute

	DefaultPaginationLimit = 100
)
