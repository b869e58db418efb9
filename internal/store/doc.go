// Package store provides SQLite-backed history of thecl invocations.
//
// Each run of the tool may append one record: what was asked (mode,
// version, input and output names), what happened (status, error code and
// message) and content digests of the input, output and IR so that two
// runs over the same data can be matched up later.
//
// # Ordering
//
//   - Runs are ordered by seq, an autoincrement logical clock, never by
//     wall time.
//   - Run ids are UUIDv7 so they also sort by creation time.
//
// # Database Configuration
//
// Several thecl processes may append to one history file, so connections
// use WAL journaling with a 5 second busy timeout. The schema version is
// kept in user_version; Open applies pending migrations in order and
// refuses a file written by a newer thecl.
//
// Digests are computed by internal/ir/hash.go using SHA-256 with domain
// separation.
package store
