package config

import "time"

type Relay struct {
	BatchSize uint32        `env:"RELAY_BATCH_SIZE" envDefault:"100" validate:"gt=0"`
	Interval  time.Duration `env:"RELAY_INTERVAL" envDefault:"1s" validate:"gt=0"`

	// Processed messages older than Retention are purged every PurgeInterval.
	// A zero Retention keeps them forever.
	Retention     time.Duration `env:"RELAY_RETENTION" envDefault:"168h" validate:"gte=0"`
	PurgeInterval time.Duration `env:"RELAY_PURGE_INTERVAL" envDefault:"1h" validate:"gt=0"`

	// Topic prefix prepended to every catalog event before it reaches Kafka.
	TopicPrefix string `env:"RELAY_TOPIC_PREFIX" envDefault:"stockroom."`
}
