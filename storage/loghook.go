package storage

import (
	"github.com/rs/zerolog"
)

// LogHook mirrors WARN+ log events into the service_logs table so the
// dashboard can show them. Writes are fire-and-forget.
type LogHook struct {
	db       *Database
	service  string
	instance string
}

// NewLogHook builds a zerolog hook for one service process.
func NewLogHook(db *Database, service, instance string) *LogHook {
	return &LogHook{db: db, service: service, instance: instance}
}

// Run implements zerolog.Hook.
func (h *LogHook) Run(e *zerolog.Event, level zerolog.Level, message string) {
	if level < zerolog.WarnLevel || message == "" {
		return
	}
	go h.db.InsertServiceLog(level.String(), message, h.service, h.instance)
}
