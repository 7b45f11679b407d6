package inter

import (
	"testing"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-runtime/inter/validatorpk"
)

func testHeader(slot uint64) Header {
	return Header{
		ParentHash:     hash.Of([]byte("parent")),
		Number:         42,
		StateRoot:      hash.Of([]byte("state")),
		ExtrinsicsRoot: hash.Of([]byte("xts")),
		Digest:         Digest{SlotClaim{AuthorityIndex: 1, Slot: slot}.DigestItem()},
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	require := require.New(t)

	for _, h := range []Header{{}, testHeader(7)} {
		raw, err := h.MarshalBinary()
		require.NoError(err)

		var got Header
		require.NoError(got.UnmarshalBinary(raw))
		if diff := cmp.Diff(h, got, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("header mismatch (-want +got):\n%s", diff)
		}
		require.Equal(h.Hash(), got.Hash())
	}
}

func TestHeaderHashCoversDigest(t *testing.T) {
	a := testHeader(7)
	b := testHeader(8)
	require.NotEqual(t, a.Hash(), b.Hash())
}

func TestHeaderSeal(t *testing.T) {
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.NoError(err)
	author := validatorpk.FromECDSA(&key.PublicKey)

	h := testHeader(7)
	require.ErrorIs(h.VerifySeal(author), ErrNoSeal)

	pre := h.PreSealHash()
	require.NoError(h.Seal(key))
	require.Equal(pre, h.PreSealHash(), "seal is excluded from the signed hash")
	require.NoError(h.VerifySeal(author))

	// resealing replaces the old seal
	require.NoError(h.Seal(key))
	require.Len(h.Digest, 2)

	other, err := crypto.GenerateKey()
	require.NoError(err)
	require.ErrorIs(h.VerifySeal(validatorpk.FromECDSA(&other.PublicKey)), ErrBadSignature)

	claim, err := h.SlotClaim()
	require.NoError(err)
	require.Equal(SlotClaim{AuthorityIndex: 1, Slot: 7}, claim)

	_, err = (&Header{}).SlotClaim()
	require.ErrorIs(err, ErrNoSlotClaim)
}

func TestHeaderCopy(t *testing.T) {
	h := testHeader(7)
	cp := h.Copy()
	cp.Digest[0].Data[0] ^= 0xff
	require.NotEqual(t, h.Digest[0].Data[0], cp.Digest[0].Data[0])
}

func TestBlockRoundTrip(t *testing.T) {
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.NoError(err)
	signed, err := SignExtrinsic(MustCall(2, 0, []interface{}{uint64(1)}), testExtra(0), key)
	require.NoError(err)

	xts := Extrinsics{NewUnsigned(MustCall(1, 0, []interface{}{uint64(1000)})), signed}
	b := Block{Header: testHeader(3), Extrinsics: xts}
	b.Header.ExtrinsicsRoot = ExtrinsicsRoot(xts)

	raw, err := b.MarshalBinary()
	require.NoError(err)
	var got Block
	require.NoError(got.UnmarshalBinary(raw))

	require.Equal(b.Hash(), got.Hash())
	require.Len(got.Extrinsics, 2)
	require.Equal(b.Header.ExtrinsicsRoot, ExtrinsicsRoot(got.Extrinsics))
	require.NoError(got.Extrinsics[1].VerifySignature())
}

func TestExtrinsicsRoot(t *testing.T) {
	require := require.New(t)

	require.Equal(hash.Hash(types.EmptyRootHash), ExtrinsicsRoot(nil))

	a := NewUnsigned(MustCall(1, 0, []interface{}{uint64(1)}))
	b := NewUnsigned(MustCall(1, 0, []interface{}{uint64(2)}))
	ab := ExtrinsicsRoot(Extrinsics{a, b})
	require.Equal(ab, ExtrinsicsRoot(Extrinsics{a, b}))
	require.NotEqual(ab, ExtrinsicsRoot(Extrinsics{b, a}), "order matters")
}
