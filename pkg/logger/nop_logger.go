package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

var (
	nop = newNopLogger()
)

// Nop returns a logger that discards every entry. Fatal does not exit.
func Nop() Logger {
	return nop
}

func newNopLogger() Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	log.ExitFunc = func(int) {}

	return &logger{
		logger: logrus.NewEntry(log),
	}
}
