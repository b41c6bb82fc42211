package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "courtside"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLeaseTTL     = 5 * time.Minute
	DefaultRuleCacheTTL = 5 * time.Second

	DefaultCurrency       = "USD"
	DefaultPaymentTimeout = 15 * time.Second

	DefaultKafkaTopic    = "booking-events"
	DefaultKafkaDLQTopic = "booking-events-dlq"

	DefaultPaginationLimit = 100
)
