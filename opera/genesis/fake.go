package genesis

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"math/rand"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/go-opera-runtime/inter/drivertype"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
	"github.com/rony4d/go-opera-runtime/opera"
)

// FakeKey is a deterministic account key. The same n always yields the same key.
func FakeKey(n int) *ecdsa.PrivateKey {
	reader := rand.New(rand.NewSource(int64(n)))
	raw := make([]byte, 32)
	for {
		_, _ = reader.Read(raw)
		if key, err := crypto.ToECDSA(raw); err == nil {
			return key
		}
	}
}

// FakeSessionSeed is the session key seed of the n-th fake validator.
func FakeSessionSeed(n int) []byte {
	return []byte(fmt.Sprintf("//fake-validator-%d", n))
}

// FakeValidator carries the private keys of a fake network participant.
type FakeValidator struct {
	ID      idx.ValidatorID
	Account *ecdsa.PrivateKey
	Session map[validatorpk.KeyType]*ecdsa.PrivateKey
}

// FakeGenesis builds a network of n equally weighted validators, each endowed with balance.
// Validator i uses FakeKey(i) for its account.
func FakeGenesis(rules opera.Rules, n int, balance *big.Int) (Genesis, []FakeValidator) {
	g := Genesis{
		Rules:      rules,
		Time:       FakeGenesisTime,
		Randomness: hash.Of([]byte(rules.Name)),
	}
	validators := make([]FakeValidator, 0, n)
	for i := 1; i <= n; i++ {
		account := FakeKey(i)
		keys, priv, err := validatorpk.GenerateSessionKeys(FakeSessionSeed(i))
		if err != nil {
			panic(err)
		}
		addr := crypto.PubkeyToAddress(account.PublicKey)
		g.Accounts = append(g.Accounts, Account{Address: addr, Balance: new(big.Int).Set(balance)})
		g.Authorities = append(g.Authorities, drivertype.Authority{
			ID:      idx.ValidatorID(i),
			Weight:  1,
			Account: addr,
			Keys:    keys,
			Status:  drivertype.OkStatus,
		})
		validators = append(validators, FakeValidator{ID: idx.ValidatorID(i), Account: account, Session: priv})
	}
	return g, validators
}
