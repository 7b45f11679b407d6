package validatorpk

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// KeyType is a four byte key role identifier.
type KeyType [4]byte

var (
	Babe               = KeyType{'b', 'a', 'b', 'e'}
	Grandpa            = KeyType{'g', 'r', 'a', 'n'}
	ImOnline           = KeyType{'i', 'm', 'o', 'n'}
	AuthorityDiscovery = KeyType{'a', 'u', 'd', 'i'}
)

// SessionKeyTypes is the fixed order of keys inside an encoded session key bundle.
var SessionKeyTypes = []KeyType{Babe, Grandpa, ImOnline, AuthorityDiscovery}

// SessionKeysSize is the length of an encoded bundle.
var SessionKeysSize = len(SessionKeyTypes) * CompressedSize

var (
	ErrUnknownKeyType     = errors.New("unknown key type")
	ErrBadSessionKeysSize = errors.New("session keys blob has wrong size")
)

func (kt KeyType) String() string {
	return string(kt[:])
}

func ParseKeyType(s string) (KeyType, error) {
	for _, kt := range SessionKeyTypes {
		if kt.String() == s {
			return kt, nil
		}
	}
	return KeyType{}, fmt.Errorf("%w: %q", ErrUnknownKeyType, s)
}

// SessionKeys is the per-authority key bundle, one key per consensus role.
type SessionKeys struct {
	Babe               PubKey
	Grandpa            PubKey
	ImOnline           PubKey
	AuthorityDiscovery PubKey
}

// TypedKey pairs a raw key with its role.
type TypedKey struct {
	Type KeyType
	Key  PubKey
}

func (k *SessionKeys) slot(kt KeyType) *PubKey {
	switch kt {
	case Babe:
		return &k.Babe
	case Grandpa:
		return &k.Grandpa
	case ImOnline:
		return &k.ImOnline
	case AuthorityDiscovery:
		return &k.AuthorityDiscovery
	}
	return nil
}

// Get returns the key of role kt.
func (k SessionKeys) Get(kt KeyType) (PubKey, bool) {
	p := k.slot(kt)
	if p == nil || p.Empty() {
		return PubKey{}, false
	}
	return *p, true
}

func (k *SessionKeys) Set(kt KeyType, pk PubKey) error {
	p := k.slot(kt)
	if p == nil {
		return ErrUnknownKeyType
	}
	*p = pk
	return nil
}

// Typed lists the keys in bundle order.
func (k SessionKeys) Typed() []TypedKey {
	out := make([]TypedKey, 0, len(SessionKeyTypes))
	for _, kt := range SessionKeyTypes {
		pk, _ := k.Get(kt)
		out = append(out, TypedKey{Type: kt, Key: pk})
	}
	return out
}

func (k SessionKeys) Copy() SessionKeys {
	return SessionKeys{
		Babe:               k.Babe.Copy(),
		Grandpa:            k.Grandpa.Copy(),
		ImOnline:           k.ImOnline.Copy(),
		AuthorityDiscovery: k.AuthorityDiscovery.Copy(),
	}
}

// Encode concatenates the compressed keys in bundle order.
func (k SessionKeys) Encode() ([]byte, error) {
	out := make([]byte, 0, SessionKeysSize)
	for _, tk := range k.Typed() {
		if len(tk.Key.Raw) != CompressedSize {
			return nil, fmt.Errorf("%s key: %w", tk.Type, ErrBadSessionKeysSize)
		}
		out = append(out, tk.Key.Raw...)
	}
	return out, nil
}

// DecodeSessionKeys splits an encoded bundle. Anything but the exact size is rejected.
func DecodeSessionKeys(b []byte) (SessionKeys, error) {
	var k SessionKeys
	if len(b) != SessionKeysSize {
		return k, ErrBadSessionKeysSize
	}
	for i, kt := range SessionKeyTypes {
		raw := make([]byte, CompressedSize)
		copy(raw, b[i*CompressedSize:])
		_ = k.Set(kt, PubKey{Type: Types.Secp256k1, Raw: raw})
	}
	return k, nil
}

// DeriveKey derives the private key of role kt from seed.
// A nil seed yields a fresh random key.
func DeriveKey(seed []byte, kt KeyType) (*ecdsa.PrivateKey, error) {
	if seed == nil {
		return crypto.GenerateKey()
	}
	return crypto.ToECDSA(crypto.Keccak256(seed, kt[:]))
}

// GenerateSessionKeys derives one key per role and returns both halves.
func GenerateSessionKeys(seed []byte) (SessionKeys, map[KeyType]*ecdsa.PrivateKey, error) {
	var pub SessionKeys
	priv := make(map[KeyType]*ecdsa.PrivateKey, len(SessionKeyTypes))
	for _, kt := range SessionKeyTypes {
		key, err := DeriveKey(seed, kt)
		if err != nil {
			return SessionKeys{}, nil, err
		}
		priv[kt] = key
		_ = pub.Set(kt, FromECDSA(&key.PublicKey))
	}
	return pub, priv, nil
}
