// Package stores provides the backend executors record stores persist
// through: a SQLite store with WAL mode, embedded migrations and
// transactional writes, and a REST store speaking the PostgREST protocol
// used by hosted Supabase projects.
package stores
