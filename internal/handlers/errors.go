package handlers

import (
	"net/http"

	"learnsprout/internal/logger"
)

var errorLog = logger.NewNop()

// SetErrorLogger sets where respondWithError and respondJSONError report failures
func SetErrorLogger(l *logger.Logger) {
	if l != nil {
		errorLog = l
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	logFailure(status, userMsg, logMsg, err)
	http.Error(w, userMsg, status)
}

func logFailure(status int, userMsg, logMsg string, err error) {
	if err == nil {
		return
	}
	if logMsg == "" {
		logMsg = userMsg
	}
	if status >= http.StatusInternalServerError {
		errorLog.Error(logMsg, "status", status, "error", err)
		return
	}
	errorLog.Debug(logMsg, "status", status, "error", err)
}
