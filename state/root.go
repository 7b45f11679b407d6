package state

import (
	"bytes"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/trie"
)

type rootEntry struct {
	key   []byte
	value []byte
}

// computeRoot is the root of a secure trie holding every non-empty pair of the store.
func computeRoot(db kvdb.Store) hash.Hash {
	var entries []rootEntry
	it := db.NewIterator(nil, nil)
	for it.Next() {
		if len(it.Value()) == 0 {
			continue
		}
		entries = append(entries, rootEntry{
			key:   crypto.Keccak256(it.Key()),
			value: append([]byte(nil), it.Value()...),
		})
	}
	err := it.Error()
	it.Release()
	if err != nil {
		panic("can't compute state root: " + err.Error())
	}

	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})
	st := trie.NewStackTrie(nil)
	for _, e := range entries {
		if err := st.TryUpdate(e.key, e.value); err != nil {
			panic("can't compute state root: " + err.Error())
		}
	}
	return hash.Hash(st.Hash())
}
