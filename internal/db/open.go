// MIT License
//
// Copyright 2018 Canonical Ledgers, LLC
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS
// IN THE SOFTWARE.

// Package db opens the outbox, the local SQLite database that holds deploys
// between the time they are built and the time they are processed by the
// network.
package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	_log "github.com/cspr-tools/cspr/internal/log"
	"github.com/nightlyone/lockfile"
)

const (
	// FileName is the name of the outbox database within its directory.
	FileName = "outbox.sqlite3"
	// LockFileName is held for as long as the outbox is open.
	LockFileName = "cspr.lock"

	// PoolSize is the number of read only connections in Outbox.Pool.
	PoolSize = 2
)

var log = _log.New("db")

// Outbox is an open outbox database.
//
// Conn is the only writable connection and must not be used concurrently.
// Pool provides read only connections.
type Outbox struct {
	Conn *sqlite.Conn
	Pool *sqlitex.Pool

	lockFile lockfile.Lockfile
}

// Open the outbox in dir, creating dir and the database if needed, and apply
// any pending migrations. The lock file in dir is held until Close.
//
// The Interrupt on Conn is set to ctx.Done().
func Open(ctx context.Context, dir string) (_ *Outbox, err error) {
	dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("filepath.Abs(): %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll(%q): %w", dir, err)
	}

	lockFilePath := filepath.Join(dir, LockFileName)
	lockFile, err := lockfile.New(lockFilePath)
	if err != nil {
		return nil, fmt.Errorf("lockfile.New(%q): %w", lockFilePath, err)
	}
	if err := lockFile.TryLock(); err != nil {
		return nil, fmt.Errorf("lockFile.TryLock(): %w", err)
	}
	// Always clean up the lockfile if Open fails.
	defer func() {
		if err != nil {
			if err := lockFile.Unlock(); err != nil {
				log.Errorf("lockFile.Unlock(): %v", err)
			}
		}
	}()

	path := filepath.Join(dir, FileName)
	conn, pool, err := OpenConnPool(ctx, path)
	if err != nil {
		return nil, err
	}
	log.Debugf("opened %v", path)
	return &Outbox{Conn: conn, Pool: pool, lockFile: lockFile}, nil
}

// Close all database connections and release the lock file.
func (o *Outbox) Close() error {
	if err := Close(o.Conn, o.Pool); err != nil {
		return err
	}
	if err := o.lockFile.Unlock(); err != nil {
		return fmt.Errorf("lockFile.Unlock(): %w", err)
	}
	return nil
}

const baseFlags = sqlite.SQLITE_OPEN_WAL |
	sqlite.SQLITE_OPEN_URI |
	sqlite.SQLITE_OPEN_NOMUTEX

// OpenConnPool opens a Conn to the sqlite3 database at dbURI, checks its
// application_id and brings its schema up to date. If the Conn is
// successfully initialized a read only Pool is opened on the same database.
//
// The caller is responsible for closing conn and pool if err is nil.
func OpenConnPool(ctx context.Context, dbURI string) (
	conn *sqlite.Conn, pool *sqlitex.Pool, err error) {

	flags := baseFlags | sqlite.SQLITE_OPEN_READWRITE | sqlite.SQLITE_OPEN_CREATE
	if conn, err = sqlite.OpenConn(dbURI, flags); err != nil {
		err = fmt.Errorf("sqlite.OpenConn(%q, %x): %w", dbURI, flags, err)
		return
	}
	defer func() {
		if err != nil {
			if err := conn.Close(); err != nil {
				log.Error(err)
			}
		}
	}()

	conn.SetInterrupt(ctx.Done())

	if err = checkOrSetApplicationID(conn); err != nil {
		return
	}
	if err = applyMigrations(conn); err != nil {
		return
	}
	// Foreign key checks are off by default and are only needed on the
	// write connection.
	if err = sqlitex.ExecScript(conn, `PRAGMA foreign_keys = ON;`); err != nil {
		return
	}

	flags = baseFlags | sqlite.SQLITE_OPEN_READONLY
	if pool, err = sqlitex.Open(dbURI, flags, PoolSize); err != nil {
		err = fmt.Errorf("sqlitex.Open(%q, %x, %v): %w",
			dbURI, flags, PoolSize, err)
		return
	}
	return
}

// Close pool and conn after checkpointing the WAL.
func Close(conn *sqlite.Conn, pool *sqlitex.Pool) error {
	if err := pool.Close(); err != nil {
		return fmt.Errorf("pool.Close(): %w", err)
	}
	conn.SetInterrupt(nil)
	if err := sqlitex.ExecScript(conn, `PRAGMA wal_checkpoint;`); err != nil {
		return err
	}
	// Close this last so that the wal and shm files are removed.
	if err := conn.Close(); err != nil {
		return fmt.Errorf("conn.Close(): %w", err)
	}
	return nil
}

func checkOrSetApplicationID(conn *sqlite.Conn) error {
	var appID int32
	if err := sqlitex.ExecTransient(conn, `PRAGMA application_id;`,
		func(stmt *sqlite.Stmt) error {
			appID = stmt.ColumnInt32(0)
			return nil
		}); err != nil {
		return err
	}
	switch appID {
	case 0: // ApplicationID not set
		return sqlitex.ExecScript(conn,
			fmt.Sprintf(`PRAGMA application_id = %v;`, ApplicationID))
	case ApplicationID:
		return nil
	}
	return fmt.Errorf("invalid database: application_id %#x", appID)
}
