package imap

import (
	"fmt"

	"github.com/emersion/go-imap"

	"github.com/customeros/mailbridge/internal/logger"
)

type errorLog struct {
	log logger.Logger
}

func newErrorLog(log logger.Logger) imap.Logger {
	return &errorLog{log: log}
}

func (l *errorLog) Printf(format string, v ...interface{}) {
	l.log.Warnf("imap/client: "+format, v...)
}

func (l *errorLog) Println(v ...interface{}) {
	l.log.Warn("imap/client: " + fmt.Sprintln(v...))
}
