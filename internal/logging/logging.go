package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	LevelKey   = "log.level"
	FormatKey  = "log.format"
	NoColorKey = "log.no_color"
)

// InitDefault sets up a console logger at info level.
// It is used before flags and config files have been read.
func InitDefault() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
	}).With().Timestamp().Logger()
}

// Init configures the global logger from the viper keys LevelKey, FormatKey and NoColorKey.
// If out is nil, logs are written to stderr.
func Init(out io.Writer) {
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString(LevelKey)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if strings.EqualFold(viper.GetString(FormatKey), "json") {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    viper.GetBool(NoColorKey),
			TimeFormat: time.TimeOnly,
		}).With().Timestamp().Logger()
	}

	// log.Ctx falls back to this logger when the context carries none
	zerolog.DefaultContextLogger = &log.Logger
}
