package iep

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-runtime/inter/ier"
	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
)

func TestKeyOwnershipProof(t *testing.T) {
	require := require.New(t)

	alice, _, err := validatorpk.GenerateSessionKeys([]byte("alice"))
	require.NoError(err)
	bob, _, err := validatorpk.GenerateSessionKeys([]byte("bob"))
	require.NoError(err)

	record := ier.SessionRecord{
		Session: 3,
		Members: []ier.Member{{ID: 1, Keys: alice}, {ID: 2, Keys: bob}},
	}
	pos, ok := record.Find(validatorpk.Grandpa, bob.Grandpa)
	require.True(ok)
	require.Equal(uint32(1), pos)

	p := KeyOwnershipProof{Record: record, Index: pos}
	require.True(p.Owns(validatorpk.Grandpa, bob.Grandpa))
	require.False(p.Owns(validatorpk.Grandpa, alice.Grandpa))
	require.False(p.Owns(validatorpk.Babe, bob.Grandpa))

	raw, err := p.Encode()
	require.NoError(err)
	got, err := DecodeKeyOwnershipProof(raw)
	require.NoError(err)
	require.Equal(record.Hash(), got.Record.Hash())
	require.True(got.Owns(validatorpk.Grandpa, bob.Grandpa))

	bad := KeyOwnershipProof{Record: record, Index: 2}
	raw, err = bad.Encode()
	require.NoError(err)
	_, err = DecodeKeyOwnershipProof(raw)
	require.ErrorIs(err, ErrBadMemberIndex)
}

func TestRecordHashBindsMembership(t *testing.T) {
	keys, _, err := validatorpk.GenerateSessionKeys([]byte("alice"))
	require.NoError(t, err)

	a := ier.SessionRecord{Session: 1, Members: []ier.Member{{ID: 1, Keys: keys}}}
	b := a.Copy()
	b.Members[0].ID = 2
	require.NotEqual(t, a.Hash(), b.Hash())

	c := a.Copy()
	c.Session = 2
	require.NotEqual(t, a.Hash(), c.Hash())
	require.Equal(t, a.Hash(), a.Copy().Hash())
}
