package api

import (
	"crypto/ecdsa"
	"errors"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
)

var ErrUnknownKey = errors.New("key is not in the keystore")

// MemKeystore keeps session private keys in memory.
type MemKeystore struct {
	mu   sync.RWMutex
	keys map[validatorpk.KeyType]map[string]*ecdsa.PrivateKey
}

func NewMemKeystore() *MemKeystore {
	return &MemKeystore{keys: make(map[validatorpk.KeyType]map[string]*ecdsa.PrivateKey)}
}

// Insert adds a private key for role kt and returns its public key.
func (ks *MemKeystore) Insert(kt validatorpk.KeyType, key *ecdsa.PrivateKey) validatorpk.PubKey {
	pk := validatorpk.FromECDSA(&key.PublicKey)
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if ks.keys[kt] == nil {
		ks.keys[kt] = make(map[string]*ecdsa.PrivateKey)
	}
	ks.keys[kt][string(pk.Bytes())] = key
	return pk
}

// Keys lists the public keys of role kt in byte order.
func (ks *MemKeystore) Keys(kt validatorpk.KeyType) []validatorpk.PubKey {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	out := make([]validatorpk.PubKey, 0, len(ks.keys[kt]))
	for _, key := range ks.keys[kt] {
		out = append(out, validatorpk.FromECDSA(&key.PublicKey))
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i].Bytes()) < string(out[j].Bytes())
	})
	return out
}

// Sign signs a 32 byte digest with the key pk of role kt.
func (ks *MemKeystore) Sign(kt validatorpk.KeyType, pk validatorpk.PubKey, digest []byte) ([]byte, error) {
	ks.mu.RLock()
	key, ok := ks.keys[kt][string(pk.Bytes())]
	ks.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownKey
	}
	return crypto.Sign(digest, key)
}
