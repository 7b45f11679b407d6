package state

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/table"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-opera-runtime/inter"
)

// PrefixSize is the length of a module key prefix.
const PrefixSize = 8

// ModulePrefix derives the key space prefix of a module from its name.
func ModulePrefix(name string) []byte {
	h := inter.Blake2b256([]byte(name))
	return h.Bytes()[:PrefixSize]
}

// Table is a prefixed view of an overlay.
// Store failures are not recoverable by the runtime and cause a panic.
type Table struct {
	kvdb.Store
}

func newTable(db kvdb.Store, prefix []byte) Table {
	return Table{table.New(db, prefix)}
}

// Sub narrows the table by another prefix.
func (t Table) Sub(prefix []byte) Table {
	return newTable(t.Store, prefix)
}

// GetBytes returns nil if the key is missing.
func (t Table) GetBytes(key []byte) []byte {
	v, err := t.Store.Get(key)
	if err != nil {
		panic(fmt.Errorf("state read %x: %w", key, err))
	}
	return v
}

func (t Table) PutBytes(key, value []byte) {
	if err := t.Store.Put(key, value); err != nil {
		panic(fmt.Errorf("state write %x: %w", key, err))
	}
}

func (t Table) Remove(key []byte) {
	if err := t.Store.Delete(key); err != nil {
		panic(fmt.Errorf("state delete %x: %w", key, err))
	}
}

// Contains reports whether key has a value.
func (t Table) Contains(key []byte) bool {
	return len(t.GetBytes(key)) != 0
}

// GetRLP decodes the value under key into to. It reports false if the key is missing.
func (t Table) GetRLP(key []byte, to interface{}) bool {
	raw := t.GetBytes(key)
	if len(raw) == 0 {
		return false
	}
	if err := rlp.DecodeBytes(raw, to); err != nil {
		panic(fmt.Errorf("state decode %x: %w", key, err))
	}
	return true
}

func (t Table) PutRLP(key []byte, v interface{}) {
	raw, err := rlp.EncodeToBytes(v)
	if err != nil {
		panic(fmt.Errorf("state encode %x: %w", key, err))
	}
	t.PutBytes(key, raw)
}

// ForEach calls fn for every key under prefix in key order until fn returns false.
// Keys passed to fn are relative to the table.
func (t Table) ForEach(prefix []byte, fn func(key, value []byte) bool) {
	it := t.Store.NewIterator(prefix, nil)
	defer it.Release()
	for it.Next() {
		if !fn(it.Key(), it.Value()) {
			break
		}
	}
	if err := it.Error(); err != nil {
		panic(fmt.Errorf("state iterate %x: %w", prefix, err))
	}
}

// Clear removes every key under prefix.
func (t Table) Clear(prefix []byte) {
	var keys [][]byte
	t.ForEach(prefix, func(key, _ []byte) bool {
		keys = append(keys, append([]byte(nil), key...))
		return true
	})
	for _, key := range keys {
		t.Remove(key)
	}
}
