// Package config holds the crawl configuration: defaults, validation, the
// optional YAML configuration file and .env loading.
//
// Values are layered with the precedence flag > environment > file >
// default. NewConfig provides the defaults, ApplyFile and ApplyEnv overlay
// the lower layers, and the CLI sets flag values last.
package config
