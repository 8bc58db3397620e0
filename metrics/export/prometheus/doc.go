// Package prometheus renders gateAuth engine metrics in the Prometheus text
// exposition format.
//
// [NewPrometheusExporter] wraps an engine and exposes an [http.Handler].
// Counters are named gateauth_*_total and the session restore latency
// histogram is gateauth_session_restore_seconds. When the source can report
// session store health, each scrape also pings the store and exports
// gateauth_session_store_up. Nothing is registered globally; callers mount
// the handler.
package prometheus
