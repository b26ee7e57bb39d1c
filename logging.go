package ibmq

import (
	"os"
	"regexp"

	"github.com/sirupsen/logrus"
)

// logger is the package logger: warnings and up to stdout unless the caller
// swaps it out with SetLogger.
var logger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.WarnLevel)
	return l
}

// SetLogger routes client logs into the given logrus instance.
func SetLogger(l *logrus.Logger) {
	if l != nil {
		logger = l
	}
}

// SetDebug toggles request-level debug logging on the package logger.
func SetDebug(debug bool) {
	if debug {
		logger.SetLevel(logrus.DebugLevel)
		return
	}
	logger.SetLevel(logrus.WarnLevel)
}

var accessTokenRe = regexp.MustCompile(`access_token=[^&\s]*`)

// redactToken strips access token values from URLs before they hit the logs.
func redactToken(url string) string {
	return accessTokenRe.ReplaceAllString(url, "access_token=***")
}
