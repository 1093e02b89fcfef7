// Package postgres provides the PostgreSQL implementation of the task store.
// It operates over the store.DBTX abstraction so the same code serves both
// plain connections and transactions.
package postgres
