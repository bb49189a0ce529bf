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

// Package deploys provides functions and SQL fragments for working with the
// "deploy" table, which stores the wire form of each deploy in the outbox
// along with its dispatch status.
package deploys

import (
	"errors"
	"fmt"
	"strings"

	"crawshaw.io/sqlite"
	"github.com/cspr-tools/cspr/crypto"
	"github.com/cspr-tools/cspr/deploy"
)

// CreateTableV1 is the first version of the "deploy" table, kept for the
// migration tests.
const CreateTableV1 = `CREATE TABLE IF NOT EXISTS "deploy" (
        "id"            INTEGER PRIMARY KEY,
        "hash"          BLOB NOT NULL UNIQUE,
        "account"       BLOB NOT NULL,
        "chain_name"    TEXT NOT NULL,
        "timestamp"     INTEGER NOT NULL,
        "ttl"           INTEGER NOT NULL,
        "status"        INTEGER NOT NULL DEFAULT 0,
        "data"          BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS "idx_deploy_status" ON "deploy"("status");
`

// CreateTable is a SQL string that creates the "deploy" table.
const CreateTable = `CREATE TABLE IF NOT EXISTS "deploy" (
        "id"            INTEGER PRIMARY KEY,
        "hash"          BLOB NOT NULL UNIQUE,
        "account"       BLOB NOT NULL,
        "chain_name"    TEXT NOT NULL,
        "timestamp"     INTEGER NOT NULL,
        "ttl"           INTEGER NOT NULL,
        "status"        INTEGER NOT NULL DEFAULT 0,
        "data"          BLOB NOT NULL,
        "error"         TEXT
);
CREATE INDEX IF NOT EXISTS "idx_deploy_status" ON "deploy"("status");
`

// ErrNotFound is returned when no deploy with the given hash is stored.
var ErrNotFound = errors.New("deploy not found")

// Status is the dispatch status of a stored deploy.
type Status int8

const (
	// Pending deploys have been built but not yet sent.
	Pending Status = iota
	// Dispatched deploys were accepted by a node.
	Dispatched
	// Rejected deploys were refused by a node.
	Rejected
	// Processed deploys executed successfully in a block.
	Processed
	// Failed deploys were included in a block but their execution failed.
	Failed
)

var statusNames = [...]string{
	Pending:    "pending",
	Dispatched: "dispatched",
	Rejected:   "rejected",
	Processed:  "processed",
	Failed:     "failed",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int8(s))
	}
	return statusNames[s]
}

// ParseStatus parses the name returned by Status.String.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if strings.EqualFold(name, n) {
			return Status(s), nil
		}
	}
	return 0, fmt.Errorf("unknown status: %q", name)
}

// Set implements pflag.Value.
func (s *Status) Set(name string) error {
	status, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Type implements pflag.Value.
func (Status) Type() string { return "status" }

// Row is a row of the "deploy" table.
type Row struct {
	ID        int64
	Hash      crypto.Digest
	Account   crypto.PublicKey
	ChainName string
	Timestamp deploy.Timestamp
	TTL       deploy.TTL
	Status    Status
	Error     string

	// Data is the binary wire form of the deploy.
	Data []byte
}

// Insert d into the "deploy" table with status Pending and return its rowid.
func Insert(conn *sqlite.Conn, d *deploy.Deploy) (int64, error) {
	data, err := d.MarshalBinary()
	if err != nil {
		return -1, fmt.Errorf("deploy.Deploy.MarshalBinary(): %w", err)
	}
	header := d.Header()
	hash := d.Hash()

	stmt := conn.Prep(`INSERT INTO "deploy"
                ("hash", "account", "chain_name", "timestamp", "ttl", "data")
                VALUES (?, ?, ?, ?, ?, ?);`)
	defer stmt.Reset()
	stmt.BindBytes(1, hash[:])
	stmt.BindBytes(2, header.Account.Bytes())
	stmt.BindText(3, header.ChainName)
	stmt.BindInt64(4, int64(header.Timestamp.Millis()))
	stmt.BindInt64(5, int64(header.TTL.Millis()))
	stmt.BindBytes(6, data)
	if _, err := stmt.Step(); err != nil {
		return -1, err
	}
	return conn.LastInsertRowID(), nil
}

// Update replaces the stored wire form of the deploy at row id with that of
// d. This is used to persist new approvals.
func Update(conn *sqlite.Conn, id int64, d *deploy.Deploy) error {
	data, err := d.MarshalBinary()
	if err != nil {
		return fmt.Errorf("deploy.Deploy.MarshalBinary(): %w", err)
	}
	stmt := conn.Prep(`UPDATE "deploy" SET "data" = ? WHERE "id" = ?;`)
	defer stmt.Reset()
	stmt.BindBytes(1, data)
	stmt.BindInt64(2, id)
	if _, err := stmt.Step(); err != nil {
		return err
	}
	if conn.Changes() != 1 {
		return fmt.Errorf("%w: id %v", ErrNotFound, id)
	}
	return nil
}

// SelectWhere is a SQL fragment for retrieving rows from the "deploy" table
// with Select.
const SelectWhere = `SELECT "id", "hash", "account", "chain_name", "timestamp",
                "ttl", "status", "error", "data" FROM "deploy" WHERE `
const (
	colID = iota
	colHash
	colAccount
	colChainName
	colTimestamp
	colTTL
	colStatus
	colError
	colData
)

// Select the next Row from the given prepared Stmt. If there are no more rows
// then (nil, nil) is returned.
//
// The Stmt must be created with a SQL string starting with SelectWhere.
func Select(stmt *sqlite.Stmt) (*Row, error) {
	hasRow, err := stmt.Step()
	if err != nil || !hasRow {
		return nil, err
	}

	row := Row{
		ID:        stmt.ColumnInt64(colID),
		ChainName: stmt.ColumnText(colChainName),
		TTL:       deploy.TTLFromMillis(uint64(stmt.ColumnInt64(colTTL))),
		Status:    Status(stmt.ColumnInt32(colStatus)),
		Error:     stmt.ColumnText(colError),
	}
	if row.Timestamp, err = deploy.TimestampFromMillis(
		uint64(stmt.ColumnInt64(colTimestamp))); err != nil {
		return nil, fmt.Errorf("deploy %v: %w", row.ID, err)
	}
	if stmt.ColumnBytes(colHash, row.Hash[:]) != len(row.Hash) {
		return nil, fmt.Errorf("deploy %v: invalid hash length", row.ID)
	}

	account := make([]byte, stmt.ColumnLen(colAccount))
	stmt.ColumnBytes(colAccount, account)
	if row.Account, _, err = crypto.DecodePublicKey(account); err != nil {
		return nil, fmt.Errorf("deploy %v: account: %w", row.ID, err)
	}

	row.Data = make([]byte, stmt.ColumnLen(colData))
	stmt.ColumnBytes(colData, row.Data)
	return &row, nil
}

// SelectByHash returns the Row of the deploy with hash. An unknown deploy
// returns (nil, nil).
func SelectByHash(conn *sqlite.Conn, hash crypto.Digest) (*Row, error) {
	stmt := conn.Prep(SelectWhere + `"hash" = ?;`)
	defer stmt.Reset()
	stmt.BindBytes(1, hash[:])
	return Select(stmt)
}

// SelectByStatus returns all rows with status in insertion order.
func SelectByStatus(conn *sqlite.Conn, status Status) ([]Row, error) {
	stmt := conn.Prep(SelectWhere + `"status" = ? ORDER BY "id";`)
	defer stmt.Reset()
	stmt.BindInt64(1, int64(status))
	var rows []Row
	for {
		row, err := Select(stmt)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return rows, nil
		}
		rows = append(rows, *row)
	}
}

// SelectCount returns the number of rows with status.
func SelectCount(conn *sqlite.Conn, status Status) (int64, error) {
	stmt := conn.Prep(`SELECT count(*) FROM "deploy" WHERE "status" = ?;`)
	defer stmt.Reset()
	stmt.BindInt64(1, int64(status))
	hasRow, err := stmt.Step()
	if err != nil || !hasRow {
		return 0, err
	}
	return stmt.ColumnInt64(0), nil
}

// SetStatus updates the status of the deploy with hash. The msg is stored as
// the deploy's error and is cleared when empty.
func SetStatus(conn *sqlite.Conn, hash crypto.Digest, status Status,
	msg string) error {
	stmt := conn.Prep(`UPDATE "deploy" SET ("status", "error") = (?, ?)
                WHERE "hash" = ?;`)
	defer stmt.Reset()
	stmt.BindInt64(1, int64(status))
	if msg == "" {
		stmt.BindNull(2)
	} else {
		stmt.BindText(2, msg)
	}
	stmt.BindBytes(3, hash[:])
	if _, err := stmt.Step(); err != nil {
		return err
	}
	if conn.Changes() != 1 {
		return fmt.Errorf("%w: %v", ErrNotFound, hash)
	}
	return nil
}
