package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	if Log != nil {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// WithComponent возвращает entry с полем component.
// Если логгер ещё не инициализирован (например, в тестах), пишет в никуда.
func WithComponent(component string) *logrus.Entry {
	return base().WithField("component", component)
}

func base() *logrus.Logger {
	if Log != nil {
		return Log
	}
	silent := logrus.New()
	silent.SetOutput(io.Discard)
	return silent
}
