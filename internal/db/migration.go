package db

import (
	"fmt"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
)

// applyMigrations creates the schema of an empty database, or brings an
// existing database from its user_version up to currentDBVersion.
func applyMigrations(conn *sqlite.Conn) (err error) {
	empty, err := isEmpty(conn)
	if err != nil {
		return
	}
	if empty {
		if err = sqlitex.ExecScript(conn, outboxSchema); err != nil {
			return
		}
		return updateDBVersion(conn, len(migrations))
	}

	version, err := getDBVersion(conn)
	if err != nil {
		return
	}
	if int(version) == len(migrations) {
		return nil
	}
	if int(version) > len(migrations) {
		return fmt.Errorf("no migration exists for DB version: %v", version)
	}

	defer sqlitex.Save(conn)(&err)

	for i, migration := range migrations[version:] {
		version := int(version) + i
		log.Infof("running migration: %v -> %v", version, version+1)
		if err = migration(conn); err != nil {
			return fmt.Errorf("migration %v: %w", version+1, err)
		}
	}
	return updateDBVersion(conn, len(migrations))
}

func isEmpty(conn *sqlite.Conn) (bool, error) {
	var count int
	err := sqlitex.ExecTransient(conn, `SELECT count(*) from "sqlite_master";`,
		func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt(0)
			return nil
		})
	return count == 0, err
}

func getDBVersion(conn *sqlite.Conn) (int64, error) {
	var version int64
	err := sqlitex.ExecTransient(conn, `PRAGMA user_version;`,
		func(stmt *sqlite.Stmt) error {
			version = stmt.ColumnInt64(0)
			return nil
		})
	return version, err
}

func updateDBVersion(conn *sqlite.Conn, version int) error {
	return sqlitex.ExecScript(conn, fmt.Sprintf(`PRAGMA user_version = %v;`,
		version))
}
