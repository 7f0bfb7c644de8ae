// Package database provides SQLite persistence for Lumina Core.
//
// It wraps database/sql with the pragmas and pool settings that suit an
// embedded single-writer SQLite deployment (WAL mode, busy timeout,
// foreign keys on) and runs embedded schema migrations at startup.
//
// # Why SQLite
//
// Lumina Core runs on a single always-on box per home. The device catalogue
// is tiny (tens of rows) and write volume is low (announcements and state
// reports). An embedded database removes an entire service from the
// deployment with no loss for this workload.
//
// # Usage
//
//	db, err := database.Open(database.Config{
//	    Path:        "./data/lumina.db",
//	    WALMode:     true,
//	    BusyTimeout: 5,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are embedded by the migrations package and named
// YYYYMMDD_HHMMSS_description.up.sql / .down.sql.
package database
