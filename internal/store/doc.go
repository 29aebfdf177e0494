// Package store provides SQLite-backed durable storage for check runs.
//
// Every `milc check --db` invocation appends one run (the checked source,
// the program fingerprint, the resolved opset) together with the findings
// it produced. The log is append-only.
//
// # Ordering
//
//   - Runs are numbered by seq INTEGER (logical clock), assigned inside the
//     write transaction, never by timestamps
//   - Findings are numbered by seq within their run, in detection order
//   - Queries order by seq so results are identical across reads
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Finding details are stored as JSON with sorted keys.
package store
