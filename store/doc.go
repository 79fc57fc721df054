// Package store adapts relational databases to the generic query contract
// the database probe uses, and lets recovery actions recycle their
// connection pools.
//
// SQLStore wraps database/sql and is opened against embedded SQLite
// (modernc.org/sqlite) or MySQL (through gorm). PGStore wraps a pgx
// connection pool. Both return rows as column-name maps and support Restart.
package store
