package logger

import (
	"io"
	"os"

	"booking-system/internal/config"

	"github.com/sirupsen/logrus"
)

// Logger обёртка над logrus с настройками из конфигурации.
type Logger struct {
	*logrus.Logger
}

// New создаёт логгер. Неизвестный уровень понижается до info, формат по умолчанию json.
// Если указан файл, записи дублируются в stdout и в файл.
func New(cfg *config.LoggerConfig) *Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	log.SetOutput(os.Stdout)
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.WithError(err).WithField("file", cfg.File).Warn("Failed to open log file, using stdout only")
		} else {
			log.SetOutput(io.MultiWriter(os.Stdout, file))
		}
	}

	return &Logger{Logger: log}
}

// WithComponent помечает записи именем подсистемы.
func (l *Logger) WithComponent(name string) *logrus.Entry {
	return l.WithField("component", name)
}
