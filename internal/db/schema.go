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

package db

import (
	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/cspr-tools/cspr/internal/db/approvals"
	"github.com/cspr-tools/cspr/internal/db/deploys"
)

// ApplicationID is stored in the database header to identify an outbox.
const ApplicationID int32 = 0x43535052 // "CSPR"

const (
	outboxSchema = deploys.CreateTable +
		approvals.CreateTable

	currentDBVersion = 2
)

var migrations = []func(*sqlite.Conn) error{
	func(conn *sqlite.Conn) error {
		return sqlitex.ExecScript(conn, deploys.CreateTableV1)
	},
	func(conn *sqlite.Conn) error {
		return sqlitex.ExecScript(conn, `
ALTER TABLE "deploy" ADD COLUMN "error" TEXT;
`+approvals.CreateTable)
	},
}

func init() {
	if len(migrations) != currentDBVersion {
		panic("len(migrations) != currentDBVersion")
	}
}
