// Package handler holds the operational HTTP handlers the pinball
// binaries expose next to their Prometheus metrics: liveness with build
// info, and a readiness probe driven by the Master's lifecycle state.
package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-logr/logr"

	"github.com/pinball-run/pinball/pkg/build"
)

// HealthCheck returns an http.Handler responding with the git revision,
// uptime, and goroutine count as JSON. It encodes into a buffer first so
// an encoding error can still produce a proper 500.
func HealthCheck(log logr.Logger, startTime time.Time) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		res := struct {
			GitRev        string `json:"git_rev"`
			UptimeSeconds string `json:"uptime_seconds"`
			Goroutines    int    `json:"goroutines"`
		}{
			GitRev:        build.GitRevision(),
			UptimeSeconds: fmt.Sprintf("%.2f", time.Since(startTime).Seconds()),
			Goroutines:    runtime.NumGoroutine(),
		}
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(&res); err != nil {
			log.Error(err, "failed to encode healthcheck response")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := buf.WriteTo(w); err != nil {
			log.Error(err, "failed to write healthcheck response")
		}
	})
}

// Ready returns an http.Handler answering 200 once probe reports true and
// 503 before that. The master binary wires probe to "has the Master
// finished recovering its token snapshot", so load balancers hold traffic
// during recovery.
func Ready(probe func() bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if !probe() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "ok")
	})
}
