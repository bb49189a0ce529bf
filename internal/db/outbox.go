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
	"fmt"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/cspr-tools/cspr/crypto"
	"github.com/cspr-tools/cspr/deploy"
	"github.com/cspr-tools/cspr/internal/db/approvals"
	"github.com/cspr-tools/cspr/internal/db/deploys"
)

// SaveDeploy stores d and its approvals and returns its rowid.
//
// A deploy that is already stored keeps its status. Its wire form is replaced
// and any approvals not yet stored are added.
func SaveDeploy(conn *sqlite.Conn, d *deploy.Deploy) (id int64, err error) {
	defer sqlitex.Save(conn)(&err)

	row, err := deploys.SelectByHash(conn, d.Hash())
	if err != nil {
		return -1, err
	}
	if row == nil {
		if id, err = deploys.Insert(conn, d); err != nil {
			return -1, err
		}
		log.Debugf("saved deploy %v", d.Hash())
	} else {
		id = row.ID
		if err = deploys.Update(conn, id, d); err != nil {
			return -1, err
		}
	}

	for _, a := range d.Approvals() {
		added, err := approvals.Insert(conn, id, a)
		if err != nil {
			return -1, err
		}
		if added {
			log.Debugf("saved approval of deploy %v by %v", d.Hash(), a.Signer)
		}
	}
	return id, nil
}

// LoadDeploy returns the stored deploy with hash and its Row. The deploy
// carries every stored approval. An unknown hash returns an error wrapping
// deploys.ErrNotFound.
func LoadDeploy(conn *sqlite.Conn, hash crypto.Digest) (*deploy.Deploy,
	*deploys.Row, error) {
	row, err := deploys.SelectByHash(conn, hash)
	if err != nil {
		return nil, nil, err
	}
	if row == nil {
		return nil, nil, fmt.Errorf("%w: %v", deploys.ErrNotFound, hash)
	}
	d, err := load(conn, row)
	if err != nil {
		return nil, nil, err
	}
	return d, row, nil
}

// LoadDeploys returns all stored deploys with status in insertion order.
func LoadDeploys(conn *sqlite.Conn, status deploys.Status) ([]*deploy.Deploy,
	error) {
	rows, err := deploys.SelectByStatus(conn, status)
	if err != nil {
		return nil, err
	}
	ds := make([]*deploy.Deploy, len(rows))
	for i := range rows {
		if ds[i], err = load(conn, &rows[i]); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func load(conn *sqlite.Conn, row *deploys.Row) (*deploy.Deploy, error) {
	var d deploy.Deploy
	if err := d.UnmarshalBinary(row.Data); err != nil {
		return nil, fmt.Errorf("deploy %v: %w", row.Hash, err)
	}
	if d.Hash() != row.Hash {
		return nil, fmt.Errorf("deploy %v: %w", row.Hash,
			deploy.ErrDeployHashMismatch)
	}
	stored, err := approvals.SelectByDeploy(conn, row.ID)
	if err != nil {
		return nil, fmt.Errorf("deploy %v: %w", row.Hash, err)
	}
	for _, a := range stored {
		if err := d.AddApproval(a); err != nil {
			return nil, fmt.Errorf("deploy %v: approval by %v: %w",
				row.Hash, a.Signer, err)
		}
	}
	return &d, nil
}
