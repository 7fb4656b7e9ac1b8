// Package config fills env-tagged structs from the process environment,
// after loading a .env file when one is present.
//
// Variables already set in the environment always win over the .env file.
// Struct tags follow github.com/caarlos0/env: `env:"NAME"`,
// `envDefault:"value"`, the ",required" suffix and `envSeparator` for
// slices. Nested structs without a tag are parsed in place, which lets
// every package own its Config and the application compose them.
//
// # Usage
//
//	type Config struct {
//		AppEnv   string `env:"APP_ENV" envDefault:"development"`
//		Postgres pg.Config
//		Redis    redis.Config
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// # Errors
//
// Load returns ErrNilPointer for a nil target and ErrParsingConfig joined
// with the parser error, which names every missing or malformed variable.
package config
