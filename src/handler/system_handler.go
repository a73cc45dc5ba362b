package handler

import (
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"
)

func HelloHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("Hello from the orders API!")); err != nil {
			logger.WithError(err).Error("\"/\" write error")
		}
	}
}

func HealthcheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("\"/healthcheck\" write error")
		}
	}
}

// EpochHandler reports the server clock in unix seconds.
func EpochHandler(now func() time.Time) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int64{"epoch": now().Unix()})
	}
}
