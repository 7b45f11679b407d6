// Package drivertype defines the authority records shared by the consensus modules.
package drivertype

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/Fantom-foundation/lachesis-base/inter/pos"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
)

var (
	// DoublesignBit marks an authority penalized for equivocation.
	DoublesignBit = uint64(1 << 7)
	// DisabledBit marks an authority excluded from block production until the next session.
	DisabledBit = uint64(1 << 0)

	OkStatus = uint64(0)
)

// Authority is an active or queued consensus participant.
type Authority struct {
	ID     idx.ValidatorID
	Weight uint64
	// Account pays and receives on behalf of the authority; penalties are taken from it.
	Account common.Address
	Keys    validatorpk.SessionKeys
	Status  uint64
}

func (a Authority) Active() bool {
	return a.Status&DisabledBit == 0
}

func (a Authority) Copy() Authority {
	cp := a
	cp.Keys = a.Keys.Copy()
	return cp
}

// Authorities is an ordered authority set. Position in the set is the authority index.
type Authorities []Authority

func (as Authorities) Copy() Authorities {
	if as == nil {
		return nil
	}
	cp := make(Authorities, len(as))
	for i, a := range as {
		cp[i] = a.Copy()
	}
	return cp
}

// ByID returns the position of the authority with the given id.
func (as Authorities) ByID(id idx.ValidatorID) (int, bool) {
	for i, a := range as {
		if a.ID == id {
			return i, true
		}
	}
	return 0, false
}

// ByKey returns the position of the authority whose role kt key equals pk.
func (as Authorities) ByKey(kt validatorpk.KeyType, pk validatorpk.PubKey) (int, bool) {
	for i, a := range as {
		if k, ok := a.Keys.Get(kt); ok && k.Equal(pk) {
			return i, true
		}
	}
	return 0, false
}

// Validators builds the weighted validator set of the active authorities.
func (as Authorities) Validators() *pos.Validators {
	b := pos.NewBuilder()
	for _, a := range as {
		if a.Active() && a.Weight != 0 {
			b.Set(a.ID, pos.Weight(a.Weight))
		}
	}
	return b.Build()
}
