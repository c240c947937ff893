package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log - общий логгер песочницы. Пишут в него все подсистемы ядра;
// сам лог не участвует в детерминизме и в реплей не попадает.
var Log *logrus.Logger

// Init настраивает Log по переменным окружения. Вызывается один раз:
// в main и в init() тестовых пакетов, которым нужен вывод ядра.
func Init() {
	Log = logrus.New()

	// LOG_LEVEL: по умолчанию info, для разбора тиков удобен debug
	logLevel, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		logLevel = "info"
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	// LOG_FORMAT=json - машиночитаемый вывод для сбора логов;
	// иначе текст с таймстампами для локальной разработки
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	if logFormat == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}

	Log.SetOutput(os.Stdout)
}
