package module

import (
	"time"

	"quakeingest/internal/adapters/ingest/fdsn"
	"quakeingest/internal/core/window"
	"quakeingest/internal/platform/config"
	"quakeingest/internal/platform/validate"
)

// default range covers the calendar year 2017
var (
	defaultStart = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	defaultEnd   = time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Options holds configuration options for the backfill service
type Options struct {
	Start      time.Time     `env:"CORE_BACKFILL_START" validate:"required"`
	End        time.Time     `env:"CORE_BACKFILL_END" validate:"required,gtfield=Start"`
	WindowSize time.Duration `env:"CORE_BACKFILL_WINDOW_DAYS" validate:"gt=0,lte=168h"`
	Endpoint   string        `env:"CORE_BACKFILL_ENDPOINT" validate:"required,url"`

	HTTPTimeout      time.Duration `env:"CORE_BACKFILL_HTTP_TIMEOUT" validate:"gte=0"`
	WindowTimeout    time.Duration `env:"CORE_BACKFILL_WINDOW_TIMEOUT" validate:"gte=0"`
	FeatureTimeout   time.Duration `env:"CORE_BACKFILL_FEATURE_TIMEOUT" validate:"gte=0"`
	StatementTimeout time.Duration `env:"CORE_BACKFILL_STATEMENT_TIMEOUT" validate:"gte=0"`

	Location *time.Location `env:"CORE_BACKFILL_TIMEZONE" validate:"required"`
}

// FromConfig reads the backfill options from config with CORE_BACKFILL_ prefix
func FromConfig(cfg config.Conf) Options {
	bf := cfg.Prefix("CORE_BACKFILL_")
	days := bf.MayInt("WINDOW_DAYS", int(window.MaxSize/(24*time.Hour)))
	return Options{
		Start:            bf.MayDate("START", defaultStart),
		End:              bf.MayDate("END", defaultEnd),
		WindowSize:       time.Duration(days) * 24 * time.Hour,
		Endpoint:         bf.MayURL("ENDPOINT", fdsn.DefaultEndpoint),
		HTTPTimeout:      bf.MayDuration("HTTP_TIMEOUT", 5*time.Minute),
		WindowTimeout:    bf.MayDuration("WINDOW_TIMEOUT", 0),
		FeatureTimeout:   bf.MayDuration("FEATURE_TIMEOUT", 0),
		StatementTimeout: bf.MayDuration("STATEMENT_TIMEOUT", 0),
		Location:         bf.MayLocation("TIMEZONE", time.Local),
	}
}

// Validate reports the first invalid option as a perr InvalidArgument error
func (o Options) Validate() error { return validate.Struct(o) }
