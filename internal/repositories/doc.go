// Package repositories implements SQLite persistence for saved logins.
//
// Key Implementations:
//   - [CredentialRepository] : bearer tokens keyed by server, so `auth login` survives between invocations
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
