package observability

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/frontline-chat/frontline/internal/logging"
)

// InitLogger installs the process-wide console logger, tagging every line
// with the process name so colocated relay instances stay distinguishable.
// FRONTLINE_LOG_NOCOLOR strips ANSI color for plain log collectors.
func InitLogger(app string) zerolog.Logger {
	noColor := false
	if v, err := strconv.ParseBool(os.Getenv(logging.EnvLogNoColor)); err == nil {
		noColor = v
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
