// Package ier (inter-epoch records) defines what is remembered about a past session.
package ier

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
)

// Member is an authority as it was registered during a session.
type Member struct {
	ID   idx.ValidatorID
	Keys validatorpk.SessionKeys
}

// SessionRecord is the full membership of a session.
// Only its hash is kept in state; the record itself travels inside ownership proofs.
type SessionRecord struct {
	Session idx.Epoch
	Members []Member
}

// Hash is the blake2b-256 of the RLP-encoded record.
func (r SessionRecord) Hash() hash.Hash {
	raw, err := rlp.EncodeToBytes(&r)
	if err != nil {
		panic("can't hash: " + err.Error())
	}
	return inter.Blake2b256(raw)
}

// Find returns the position of the member holding key pk in role kt.
func (r SessionRecord) Find(kt validatorpk.KeyType, pk validatorpk.PubKey) (uint32, bool) {
	for i, m := range r.Members {
		if k, ok := m.Keys.Get(kt); ok && k.Equal(pk) {
			return uint32(i), true
		}
	}
	return 0, false
}

// Copy deep-copies the record.
func (r SessionRecord) Copy() SessionRecord {
	cp := SessionRecord{Session: r.Session}
	if r.Members != nil {
		cp.Members = make([]Member, len(r.Members))
		for i, m := range r.Members {
			cp.Members[i] = Member{ID: m.ID, Keys: m.Keys.Copy()}
		}
	}
	return cp
}
