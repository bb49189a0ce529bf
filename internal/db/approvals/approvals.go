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

// Package approvals provides functions and SQL fragments for working with the
// "approval" table, which stores the signatures collected for each deploy in
// the outbox.
package approvals

import (
	"fmt"

	"crawshaw.io/sqlite"
	"github.com/cspr-tools/cspr/crypto"
	"github.com/cspr-tools/cspr/deploy"
)

// CreateTable is a SQL string that creates the "approval" table.
//
// A signer may approve a given deploy at most once.
const CreateTable = `CREATE TABLE IF NOT EXISTS "approval" (
        "id"            INTEGER PRIMARY KEY,
        "deploy_id"     INTEGER NOT NULL,
        "signer"        BLOB NOT NULL,
        "signature"     BLOB NOT NULL,

        UNIQUE("deploy_id", "signer"),

        FOREIGN KEY("deploy_id") REFERENCES "deploy"
);
CREATE INDEX IF NOT EXISTS "idx_approval_deploy_id" ON "approval"("deploy_id");
`

// Insert the approval a for the deploy at row deployID. If the signer has
// already approved that deploy, the row is left unchanged and false is
// returned.
func Insert(conn *sqlite.Conn, deployID int64, a deploy.Approval) (bool, error) {
	stmt := conn.Prep(`INSERT OR IGNORE INTO "approval"
                ("deploy_id", "signer", "signature") VALUES (?, ?, ?);`)
	defer stmt.Reset()
	stmt.BindInt64(1, deployID)
	stmt.BindBytes(2, a.Signer.Bytes())
	stmt.BindBytes(3, a.Signature.Bytes())
	if _, err := stmt.Step(); err != nil {
		return false, err
	}
	return conn.Changes() > 0, nil
}

// SelectByDeploy returns the approvals of the deploy at row deployID in the
// order they were inserted.
func SelectByDeploy(conn *sqlite.Conn, deployID int64) ([]deploy.Approval, error) {
	stmt := conn.Prep(`SELECT "signer", "signature" FROM "approval"
                WHERE "deploy_id" = ? ORDER BY "id";`)
	defer stmt.Reset()
	stmt.BindInt64(1, deployID)

	var approvals []deploy.Approval
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, err
		}
		if !hasRow {
			return approvals, nil
		}
		a, err := scan(stmt)
		if err != nil {
			return nil, fmt.Errorf("approval %v: %w", len(approvals), err)
		}
		approvals = append(approvals, a)
	}
}

func scan(stmt *sqlite.Stmt) (deploy.Approval, error) {
	var a deploy.Approval

	signer := make([]byte, stmt.ColumnLen(0))
	stmt.ColumnBytes(0, signer)
	pub, rest, err := crypto.DecodePublicKey(signer)
	if err != nil {
		return a, fmt.Errorf("signer: %w", err)
	}
	if len(rest) > 0 {
		return a, fmt.Errorf("signer: %v trailing bytes", len(rest))
	}

	signature := make([]byte, stmt.ColumnLen(1))
	stmt.ColumnBytes(1, signature)
	sig, rest, err := crypto.DecodeSignature(signature)
	if err != nil {
		return a, fmt.Errorf("signature: %w", err)
	}
	if len(rest) > 0 {
		return a, fmt.Errorf("signature: %v trailing bytes", len(rest))
	}

	a.Signer, a.Signature = pub, sig
	return a, nil
}

// SelectCount returns the number of approvals of the deploy at row deployID.
func SelectCount(conn *sqlite.Conn, deployID int64) (int64, error) {
	stmt := conn.Prep(`SELECT count(*) FROM "approval" WHERE "deploy_id" = ?;`)
	defer stmt.Reset()
	stmt.BindInt64(1, deployID)
	hasRow, err := stmt.Step()
	if err != nil || !hasRow {
		return 0, err
	}
	return stmt.ColumnInt64(0), nil
}
