// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reporter describes the live state of a module for the HTTP surface.
type Reporter interface {
	// Healthy reports whether the module is connected to its broker.
	Healthy() bool
	// Snapshot returns a JSON-serializable view of the module state.
	Snapshot() any
}

// NewRouter returns the HTTP routes of a module process: /metrics for
// Prometheus scraping, /healthz for liveness checks and /status for a JSON
// snapshot.
func NewRouter(gatherer prometheus.Gatherer, reporter Reporter) *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).
		Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !reporter.Healthy() {
			http.Error(w, "not connected", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reporter.Snapshot())
	}).Methods(http.MethodGet)

	return r
}
