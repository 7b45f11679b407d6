// Package validatorpk holds typed authority public keys and the session key bundle.
package validatorpk

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PubKey is a public key tagged with its signature scheme.
type PubKey struct {
	Type uint8
	Raw  []byte
}

var Types = struct {
	Secp256k1 uint8
}{
	Secp256k1: 0xc0,
}

// CompressedSize is the length of a compressed secp256k1 key.
const CompressedSize = 33

var (
	ErrEmptyPubKey     = errors.New("empty pubkey")
	ErrMalformedPubKey = errors.New("malformed pubkey hex")
)

// FromECDSA wraps the compressed form of a secp256k1 public key.
func FromECDSA(pub *ecdsa.PublicKey) PubKey {
	return PubKey{Type: Types.Secp256k1, Raw: crypto.CompressPubkey(pub)}
}

func (pk PubKey) Empty() bool {
	return len(pk.Raw) == 0 && pk.Type == 0
}

func (pk PubKey) String() string {
	return "0x" + common.Bytes2Hex(pk.Bytes())
}

// Bytes is the type byte followed by the raw key.
func (pk PubKey) Bytes() []byte {
	return append([]byte{pk.Type}, pk.Raw...)
}

func (pk PubKey) Copy() PubKey {
	return PubKey{Type: pk.Type, Raw: common.CopyBytes(pk.Raw)}
}

func (pk PubKey) Equal(o PubKey) bool {
	return pk.Type == o.Type && string(pk.Raw) == string(o.Raw)
}

// Verify checks a 64 or 65 byte [R || S || V] signature over digest.
func (pk PubKey) Verify(digest, sig []byte) bool {
	if pk.Type != Types.Secp256k1 || len(sig) < 64 {
		return false
	}
	return crypto.VerifySignature(pk.Raw, digest, sig[:64])
}

// FromString parses the hex form produced by String. Odd-length input is
// rejected rather than padded.
func FromString(str string) (PubKey, error) {
	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		str = str[2:]
	}
	b, err := hex.DecodeString(str)
	if err != nil {
		return PubKey{}, fmt.Errorf("%w: %v", ErrMalformedPubKey, err)
	}
	return FromBytes(b)
}

func FromBytes(b []byte) (PubKey, error) {
	if len(b) == 0 {
		return PubKey{}, ErrEmptyPubKey
	}
	return PubKey{Type: b[0], Raw: b[1:]}, nil
}

func (pk *PubKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

func (pk *PubKey) UnmarshalText(input []byte) error {
	res, err := FromString(string(input))
	if err != nil {
		return err
	}
	*pk = res
	return nil
}
