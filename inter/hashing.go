package inter

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"golang.org/x/crypto/blake2b"
)

// Blake2b256 hashes the concatenation of data.
func Blake2b256(data ...[]byte) hash.Hash {
	h, _ := blake2b.New256(nil)
	for _, d := range data {
		_, _ = h.Write(d)
	}
	return hash.BytesToHash(h.Sum(nil))
}
