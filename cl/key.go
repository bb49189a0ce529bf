package cl

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/cspr-tools/cspr/cl/bytesrepr"
)

// AddressSize is the size of the address of a Key or URef.
const AddressSize = 32

// KeyKind is the discriminant of a Key.
type KeyKind uint8

const (
	KeyAccount KeyKind = iota
	KeyHash
	KeyURef
)

var keyPrefixes = [...]string{
	KeyAccount: "account-hash-",
	KeyHash:    "hash-",
	KeyURef:    "uref-",
}

func (kind KeyKind) valid() bool {
	return int(kind) < len(keyPrefixes)
}

func (kind KeyKind) String() string {
	switch kind {
	case KeyAccount:
		return "Account"
	case KeyHash:
		return "Hash"
	case KeyURef:
		return "URef"
	}
	return fmt.Sprintf("KeyKind(%d)", uint8(kind))
}

// Key addresses global state: an account, a contract hash, or a URef.
type Key struct {
	Kind KeyKind
	Addr [AddressSize]byte
}

// String returns the formatted key, such as "account-hash-<hex>".
func (k Key) String() string {
	if !k.Kind.valid() {
		return fmt.Sprintf("%v-%x", k.Kind, k.Addr)
	}
	return keyPrefixes[k.Kind] + hex.EncodeToString(k.Addr[:])
}

// ParseKey parses the formatted key returned by Key.String.
func ParseKey(s string) (Key, error) {
	for kind, prefix := range keyPrefixes {
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		k := Key{Kind: KeyKind(kind)}
		if err := parseAddress(k.Addr[:], s[len(prefix):]); err != nil {
			return Key{}, fmt.Errorf("key: %w", err)
		}
		return k, nil
	}
	return Key{}, fmt.Errorf("key: unknown prefix: %q", s)
}

// MarshalText returns the formatted key.
func (k Key) MarshalText() ([]byte, error) {
	if !k.Kind.valid() {
		return nil, fmt.Errorf("%w: key kind %v",
			bytesrepr.ErrUnknownDiscriminant, uint8(k.Kind))
	}
	return []byte(k.String()), nil
}

// UnmarshalText parses the formatted key.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// AccessRights of a URef. The bits may be combined.
type AccessRights uint8

const (
	AccessNone  AccessRights = 0
	AccessRead  AccessRights = 1
	AccessWrite AccessRights = 2
	AccessAdd   AccessRights = 4

	AccessReadWrite    = AccessRead | AccessWrite
	AccessReadAdd      = AccessRead | AccessAdd
	AccessAddWrite     = AccessAdd | AccessWrite
	AccessReadAddWrite = AccessRead | AccessAdd | AccessWrite
)

func (rights AccessRights) valid() bool {
	return rights <= AccessReadAddWrite
}

// URef is an unforgeable reference: an address and the access rights granted
// to its holder.
type URef struct {
	Addr   [AddressSize]byte
	Rights AccessRights
}

// String returns the formatted URef, such as "uref-<hex>-007", where the
// suffix is the access rights in octal.
func (u URef) String() string {
	return fmt.Sprintf("uref-%x-%03o", u.Addr, uint8(u.Rights))
}

// ParseURef parses the formatted URef returned by URef.String.
func ParseURef(s string) (URef, error) {
	const prefix = "uref-"
	if !strings.HasPrefix(s, prefix) {
		return URef{}, fmt.Errorf("uref: missing prefix: %q", s)
	}
	s = s[len(prefix):]
	i := strings.LastIndexByte(s, '-')
	if i < 0 {
		return URef{}, fmt.Errorf("uref: missing access rights")
	}
	var u URef
	if err := parseAddress(u.Addr[:], s[:i]); err != nil {
		return URef{}, fmt.Errorf("uref: %w", err)
	}
	rights, err := strconv.ParseUint(s[i+1:], 8, 8)
	if err != nil {
		return URef{}, fmt.Errorf("uref: access rights: %w", err)
	}
	u.Rights = AccessRights(rights)
	if !u.Rights.valid() {
		return URef{}, fmt.Errorf("uref: %w: access rights %o",
			bytesrepr.ErrUnknownDiscriminant, rights)
	}
	return u, nil
}

// MarshalText returns the formatted URef.
func (u URef) MarshalText() ([]byte, error) {
	if !u.Rights.valid() {
		return nil, fmt.Errorf("%w: access rights %o",
			bytesrepr.ErrUnknownDiscriminant, uint8(u.Rights))
	}
	return []byte(u.String()), nil
}

// UnmarshalText parses the formatted URef.
func (u *URef) UnmarshalText(text []byte) error {
	parsed, err := ParseURef(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

func parseAddress(dst []byte, s string) error {
	if len(s) != len(dst)*2 {
		return fmt.Errorf("invalid length")
	}
	_, err := hex.Decode(dst, []byte(s))
	return err
}
