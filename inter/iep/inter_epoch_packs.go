// Package iep (inter-epoch packs) bundles a session record with the position of one of its members.
package iep

import (
	"errors"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-opera-runtime/inter/ier"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
)

var ErrBadMemberIndex = errors.New("member index out of range")

// KeyOwnershipProof binds a key to a historical session.
// It is valid if the record hash matches the one stored for the session.
type KeyOwnershipProof struct {
	Record ier.SessionRecord
	Index  uint32
}

// Member returns the member the proof points at.
func (p KeyOwnershipProof) Member() (ier.Member, error) {
	if int(p.Index) >= len(p.Record.Members) {
		return ier.Member{}, ErrBadMemberIndex
	}
	return p.Record.Members[p.Index], nil
}

// Owns reports whether the pointed member held pk in role kt.
func (p KeyOwnershipProof) Owns(kt validatorpk.KeyType, pk validatorpk.PubKey) bool {
	m, err := p.Member()
	if err != nil {
		return false
	}
	k, ok := m.Keys.Get(kt)
	return ok && k.Equal(pk)
}

func (p KeyOwnershipProof) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(&p)
}

func DecodeKeyOwnershipProof(b []byte) (KeyOwnershipProof, error) {
	var p KeyOwnershipProof
	if err := rlp.DecodeBytes(b, &p); err != nil {
		return KeyOwnershipProof{}, err
	}
	if _, err := p.Member(); err != nil {
		return KeyOwnershipProof{}, err
	}
	return p, nil
}
