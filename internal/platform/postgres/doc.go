// Package postgres implements the store interfaces using PostgreSQL.
//
// Task and cache records carry an expires_at column set at creation; every
// read filters on it, so an expired record is indistinguishable from an
// absent one. A periodic sweep deletes the dead rows. The stores never retry
// failed operations; that decision belongs to their callers.
package postgres
