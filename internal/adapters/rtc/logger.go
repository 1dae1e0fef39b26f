package rtc

import (
	"fmt"

	"github.com/pion/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// zerologFactory routes pion's internal logging into the global zerolog logger.
type zerologFactory struct{}

func (zerologFactory) NewLogger(scope string) logging.LeveledLogger {
	l := log.With().Str("module", "pion").Str("scope", scope).Logger()
	return &zerologLeveled{l: l}
}

type zerologLeveled struct {
	l zerolog.Logger
}

var _ logging.LeveledLogger = (*zerologLeveled)(nil)

func (z *zerologLeveled) Trace(msg string) { z.l.Trace().Msg(msg) }
func (z *zerologLeveled) Tracef(format string, args ...any) {
	z.l.Trace().Msg(fmt.Sprintf(format, args...))
}
func (z *zerologLeveled) Debug(msg string) { z.l.Debug().Msg(msg) }
func (z *zerologLeveled) Debugf(format string, args ...any) {
	z.l.Debug().Msg(fmt.Sprintf(format, args...))
}
func (z *zerologLeveled) Info(msg string) { z.l.Info().Msg(msg) }
func (z *zerologLeveled) Infof(format string, args ...any) {
	z.l.Info().Msg(fmt.Sprintf(format, args...))
}
func (z *zerologLeveled) Warn(msg string) { z.l.Warn().Msg(msg) }
func (z *zerologLeveled) Warnf(format string, args ...any) {
	z.l.Warn().Msg(fmt.Sprintf(format, args...))
}
func (z *zerologLeveled) Error(msg string) { z.l.Error().Msg(msg) }
func (z *zerologLeveled) Errorf(format string, args ...any) {
	z.l.Error().Msg(fmt.Sprintf(format, args...))
}
