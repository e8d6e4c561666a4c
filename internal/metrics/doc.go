// Package metrics defines Prometheus collectors for the asset browser core.
//
// All metrics are registered with the default registry using promauto. To
// expose them, call Serve with a listen address; it mounts promhttp.Handler()
// on /metrics.
package metrics
