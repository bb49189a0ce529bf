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

// Package deploy builds, signs and encodes Casper deploys.
package deploy

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cspr-tools/cspr/cl/bytesrepr"
	"github.com/cspr-tools/cspr/crypto"
	_log "github.com/cspr-tools/cspr/internal/log"
)

var log = _log.New("deploy")

var (
	ErrBodyHashMismatch   = errors.New("body hash mismatch")
	ErrDeployHashMismatch = errors.New("deploy hash mismatch")
	ErrInvalidSignature   = errors.New("invalid signature")
)

// minApprovalSize is the size of an encoded ed25519 approval.
const minApprovalSize = 1 + 32 + 1 + 64

// Approval is a signature of a deploy hash.
type Approval struct {
	Signer    crypto.PublicKey `json:"signer"`
	Signature crypto.Signature `json:"signature"`
}

// Deploy is a hashed header and body plus the approvals collected for it.
// The header and body are immutable once built. Approvals may be added
// concurrently.
type Deploy struct {
	hash    crypto.Digest
	header  Header
	payment ExecutableItem
	session ExecutableItem

	mu        sync.Mutex
	approvals []Approval
	signers   map[string]struct{}
}

// BodyHash returns the hash of the encoded session followed by the encoded
// payment.
func BodyHash(payment, session ExecutableItem) (crypto.Digest, error) {
	data, err := appendBody(nil, payment, session)
	if err != nil {
		return crypto.Digest{}, err
	}
	return crypto.Hash(data), nil
}

func appendBody(dst []byte, payment, session ExecutableItem) ([]byte, error) {
	dst, err := AppendItem(dst, session)
	if err != nil {
		return dst, fmt.Errorf("session: %w", err)
	}
	if dst, err = AppendItem(dst, payment); err != nil {
		return dst, fmt.Errorf("payment: %w", err)
	}
	return dst, nil
}

// New returns an unapproved Deploy of payment and session. It fails on the
// first invalid param or unencodable item. The Deploy keeps its own copies of
// payment and session.
func New(params Params, payment, session ExecutableItem) (*Deploy, error) {
	payment, session = CopyItem(payment), CopyItem(session)
	bodyHash, err := BodyHash(payment, session)
	if err != nil {
		return nil, err
	}
	header, err := NewHeader(params, bodyHash)
	if err != nil {
		return nil, err
	}
	hash, err := header.Hash()
	if err != nil {
		return nil, err
	}
	log.With("deploy", hash).Debug("new deploy")
	return &Deploy{hash: hash, header: header,
		payment: payment, session: session}, nil
}

// Hash returns the deploy hash.
func (d *Deploy) Hash() crypto.Digest { return d.hash }

// Header returns a copy of the header.
func (d *Deploy) Header() Header {
	h := d.header
	h.Dependencies = append([]crypto.Digest{}, h.Dependencies...)
	h.Account.Key = append([]byte{}, h.Account.Key...)
	return h
}

// Payment returns a copy of the payment item.
func (d *Deploy) Payment() ExecutableItem { return CopyItem(d.payment) }

// Session returns a copy of the session item.
func (d *Deploy) Session() ExecutableItem { return CopyItem(d.session) }

// Approve signs the deploy hash with key and adds the approval. If key has
// already approved the deploy nothing changes.
func (d *Deploy) Approve(key crypto.PrivateKey) error {
	signer := key.PublicKey()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hasSigner(signer) {
		d.logDuplicate(signer)
		return nil
	}
	sig, err := key.Sign(d.hash)
	if err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	d.insert(Approval{Signer: signer, Signature: sig})
	return nil
}

// AddApproval adds an approval made elsewhere after verifying its signature.
// If its signer has already approved the deploy nothing changes.
func (d *Deploy) AddApproval(a Approval) error {
	if err := d.verifyApproval(a); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hasSigner(a.Signer) {
		d.logDuplicate(a.Signer)
		return nil
	}
	d.insert(a)
	return nil
}

func (d *Deploy) verifyApproval(a Approval) error {
	if err := a.Signer.Validate(); err != nil {
		return fmt.Errorf("approval: signer: %w", err)
	}
	if !crypto.Verify(d.hash, a.Signature, a.Signer) {
		return fmt.Errorf("approval: %v: %w", a.Signer, ErrInvalidSignature)
	}
	return nil
}

func (d *Deploy) hasSigner(signer crypto.PublicKey) bool {
	_, ok := d.signers[string(signer.Bytes())]
	return ok
}

func (d *Deploy) insert(a Approval) {
	if d.signers == nil {
		d.signers = make(map[string]struct{})
	}
	d.signers[string(a.Signer.Bytes())] = struct{}{}
	d.approvals = append(d.approvals, a)
}

func (d *Deploy) logDuplicate(signer crypto.PublicKey) {
	log.With("deploy", d.hash).With("signer", signer).
		Debug("duplicate approval ignored")
}

// Approvals returns a copy of the approvals in the order they were added.
func (d *Deploy) Approvals() []Approval {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Approval{}, d.approvals...)
}

// Verify recomputes the body hash and deploy hash and checks every approval.
func (d *Deploy) Verify() error {
	bodyHash, err := BodyHash(d.payment, d.session)
	if err != nil {
		return err
	}
	if bodyHash != d.header.BodyHash {
		return ErrBodyHashMismatch
	}
	hash, err := d.header.Hash()
	if err != nil {
		return err
	}
	if hash != d.hash {
		return ErrDeployHashMismatch
	}
	for i, a := range d.Approvals() {
		if err := d.verifyApproval(a); err != nil {
			return fmt.Errorf("approvals[%v]: %w", i, err)
		}
	}
	return nil
}

// MarshalBinary returns the encoded header, session, payment and approvals.
func (d *Deploy) MarshalBinary() ([]byte, error) {
	data, err := d.header.AppendBinary(nil)
	if err != nil {
		return nil, err
	}
	if data, err = appendBody(data, d.payment, d.session); err != nil {
		return nil, err
	}
	approvals := d.Approvals()
	data = bytesrepr.AppendI32(data, int32(len(approvals)))
	for _, a := range approvals {
		data = append(data, a.Signer.Bytes()...)
		data = append(data, a.Signature.Bytes()...)
	}
	return data, nil
}

// UnmarshalBinary decodes data as produced by MarshalBinary. The hashes are
// recomputed and every approval is verified.
func (d *Deploy) UnmarshalBinary(data []byte) error {
	header, rest, err := DecodeHeader(data)
	if err != nil {
		return err
	}
	session, rest, err := DecodeItem(rest)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	payment, rest, err := DecodeItem(rest)
	if err != nil {
		return fmt.Errorf("payment: %w", err)
	}
	n, rest, err := bytesrepr.Length(rest)
	if err != nil {
		return fmt.Errorf("approvals: %w", err)
	}
	if n > len(rest)/minApprovalSize {
		return fmt.Errorf("approvals: %w: %v approvals",
			bytesrepr.ErrBufferTooShort, n)
	}
	approvals := make([]Approval, 0, n)
	for i := 0; i < n; i++ {
		var a Approval
		if a.Signer, rest, err = crypto.DecodePublicKey(rest); err != nil {
			return fmt.Errorf("approvals[%v]: signer: %w", i, err)
		}
		if a.Signature, rest, err = crypto.DecodeSignature(rest); err != nil {
			return fmt.Errorf("approvals[%v]: signature: %w", i, err)
		}
		approvals = append(approvals, a)
	}
	if len(rest) > 0 {
		return fmt.Errorf("%v trailing bytes", len(rest))
	}
	return d.assemble(crypto.Digest{}, header, payment, session, approvals)
}

// assemble sets the fields of d after checking the header limits, the body
// hash and, if nonzero, the claimed deploy hash.
func (d *Deploy) assemble(claimed crypto.Digest, header Header,
	payment, session ExecutableItem, approvals []Approval) error {
	if err := header.validate(); err != nil {
		return err
	}
	bodyHash, err := BodyHash(payment, session)
	if err != nil {
		return err
	}
	if bodyHash != header.BodyHash {
		return ErrBodyHashMismatch
	}
	hash, err := header.Hash()
	if err != nil {
		return err
	}
	if !claimed.IsZero() && claimed != hash {
		return ErrDeployHashMismatch
	}

	d.mu.Lock()
	d.hash, d.header = hash, header
	d.payment, d.session = payment, session
	d.approvals, d.signers = nil, nil
	d.mu.Unlock()
	for i, a := range approvals {
		if err := d.AddApproval(a); err != nil {
			return fmt.Errorf("approvals[%v]: %w", i, err)
		}
	}
	return nil
}

type deployJSON struct {
	Hash      crypto.Digest   `json:"hash"`
	Header    Header          `json:"header"`
	Payment   json.RawMessage `json:"payment"`
	Session   json.RawMessage `json:"session"`
	Approvals []Approval      `json:"approvals"`
}

// MarshalJSON renders d in the format used by nodes.
func (d *Deploy) MarshalJSON() ([]byte, error) {
	payment, err := MarshalItem(d.payment)
	if err != nil {
		return nil, fmt.Errorf("payment: %w", err)
	}
	session, err := MarshalItem(d.session)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return json.Marshal(deployJSON{
		Hash:      d.hash,
		Header:    d.header,
		Payment:   payment,
		Session:   session,
		Approvals: d.Approvals(),
	})
}

// UnmarshalJSON parses the format produced by MarshalJSON. The hashes are
// recomputed and must match, and every approval is verified.
func (d *Deploy) UnmarshalJSON(data []byte) error {
	var v deployJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%T: %w", d, err)
	}
	if v.Hash.IsZero() {
		return fmt.Errorf("%T: missing hash", d)
	}
	payment, err := UnmarshalItem(v.Payment)
	if err != nil {
		return fmt.Errorf("%T: payment: %w", d, err)
	}
	session, err := UnmarshalItem(v.Session)
	if err != nil {
		return fmt.Errorf("%T: session: %w", d, err)
	}
	if err := d.assemble(v.Hash, v.Header,
		payment, session, v.Approvals); err != nil {
		return fmt.Errorf("%T: %w", d, err)
	}
	return nil
}
