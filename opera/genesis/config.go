// Package genesis describes the initial state of a network.
package genesis

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/inter/drivertype"
	"github.com/rony4d/go-opera-runtime/opera"
)

// FakeGenesisTime is the genesis time of fake networks.
var FakeGenesisTime = inter.Timestamp(1608600000 * time.Second)

var (
	ErrNoAuthorities      = errors.New("genesis has no authorities")
	ErrDuplicateAuthority = errors.New("duplicate genesis authority")
	ErrDuplicateAccount   = errors.New("duplicate genesis account")
	ErrBelowExistential   = errors.New("genesis balance below existential deposit")
)

// Account is a pre-funded account.
type Account struct {
	Address common.Address
	Balance *big.Int
}

// Genesis is everything needed to build block zero.
type Genesis struct {
	Rules opera.Rules
	Time  inter.Timestamp

	Accounts    []Account
	Authorities drivertype.Authorities
	// Randomness seeds the first two epochs.
	Randomness hash.Hash
}

// Validate checks the genesis is self-consistent.
func (g *Genesis) Validate() error {
	if len(g.Authorities) == 0 {
		return ErrNoAuthorities
	}
	if uint32(len(g.Authorities)) > g.Rules.Epochs.MaxAuthorities {
		return fmt.Errorf("%d authorities, max %d", len(g.Authorities), g.Rules.Epochs.MaxAuthorities)
	}
	ids := make(map[uint32]bool, len(g.Authorities))
	for _, a := range g.Authorities {
		if ids[uint32(a.ID)] {
			return fmt.Errorf("%w: %d", ErrDuplicateAuthority, a.ID)
		}
		ids[uint32(a.ID)] = true
		if _, err := a.Keys.Encode(); err != nil {
			return fmt.Errorf("authority %d: %w", a.ID, err)
		}
	}
	seen := make(map[common.Address]bool, len(g.Accounts))
	for _, acc := range g.Accounts {
		if seen[acc.Address] {
			return fmt.Errorf("%w: %s", ErrDuplicateAccount, acc.Address.Hex())
		}
		seen[acc.Address] = true
		if acc.Balance == nil || acc.Balance.Cmp(g.Rules.Economy.ExistentialDeposit) < 0 {
			return fmt.Errorf("%w: %s", ErrBelowExistential, acc.Address.Hex())
		}
	}
	return nil
}

// Hash identifies the chain. Signed extrinsics commit to it.
func (g *Genesis) Hash() hash.Hash {
	raw, err := rlp.EncodeToBytes(g)
	if err != nil {
		panic("can't hash genesis: " + err.Error())
	}
	return inter.Blake2b256(raw)
}
