// Package prometheus exposes goSession metrics as a prometheus.Collector.
//
// Counter names are prefixed gosession_ and end in _total; the single
// histogram is gosession_wait_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers register the
//     Exporter themselves or mount Handler.
//   - Mutate manager state.
package prometheus
