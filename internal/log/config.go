package log

import "io"

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

type Config struct {
	Level  Level  `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format Format `mapstructure:"format" validate:"omitempty,oneof=text json"`
	// Service is attached to every record; empty omits the attribute.
	Service string `mapstructure:"service"`
	// Output defaults to stderr. Lambda runtimes forward stderr to CloudWatch.
	Output io.Writer `mapstructure:"-"`
}

func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatText,
	}
}
