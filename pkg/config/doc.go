// Package config loads application configuration from environment variables
// into tagged structs, reading an optional .env file first.
//
// Each configuration type is parsed once per process and cached, so services
// can call Load from any component without coordinating initialization order:
//
//	type MongoConfig struct {
//	    URL string `env:"MONGODB_URL,required"`
//	}
//
//	var cfg MongoConfig
//	config.MustLoad(&cfg)
package config
