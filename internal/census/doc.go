// Package census persists completed trunk measurements to SQLite and rolls
// them up into per-species statistics.
//
// Persistence is an optional side channel of the measurement service: when
// no database path is configured the service still measures, it just keeps
// no history. The store is append-only from the service's point of view;
// measurements are never updated after insert.
package census
