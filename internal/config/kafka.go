package config

import "time"

type Kafka struct {
	Addresses []string `env:"KAFKA_ADDRESSES,required" envSeparator:","`
	Group     string   `env:"KAFKA_GROUP" envDefault:"stockroom"`
	ClientID  string   `env:"KAFKA_CLIENT_ID" envDefault:"stockroom"`

	// DialTimeout bounds the startup ping to the seed brokers.
	DialTimeout time.Duration `env:"KAFKA_DIAL_TIMEOUT" envDefault:"5s"`
}
