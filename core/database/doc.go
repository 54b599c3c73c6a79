// Package database handles the warehouse database connection and schema
// inspection.
//
// It wraps GORM to configure the MySQL connection from the application's
// configuration, with sane pool settings and connect/read/write timeouts
// baked into the DSN.
//
// The schema inspector retrieves actual column definitions for a target
// table, which the import preflight uses to verify key, tracked and
// provenance columns exist before a merge is attempted.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.TableColumns(db, "dw_boats")
package database
