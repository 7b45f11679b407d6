package inter

import (
	"math/big"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func testExtra(nonce uint64) SignedExtra {
	return SignedExtra{
		SpecVersion: 1,
		TxVersion:   1,
		Genesis:     hash.Of([]byte("genesis")),
		Era:         Mortal(10, 64),
		Nonce:       nonce,
		Tip:         big.NewInt(7),
	}
}

func TestSignedExtrinsicRoundTrip(t *testing.T) {
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.NoError(err)
	call := MustCall(2, 0, []interface{}{uint64(5)})

	xt, err := SignExtrinsic(call, testExtra(3), key)
	require.NoError(err)
	require.True(xt.IsSigned())
	require.Equal(crypto.PubkeyToAddress(key.PublicKey), xt.Signer())
	require.NoError(xt.VerifySignature())

	raw, err := xt.MarshalBinary()
	require.NoError(err)
	require.Equal(uint64(len(raw)), xt.Size())

	got, err := DecodeExtrinsic(raw)
	require.NoError(err)
	require.NoError(got.VerifySignature())
	require.Equal(xt.Call, got.Call)
	require.Equal(xt.Signature.Signer, got.Signature.Signer)
	require.Equal(xt.Signature.Sig, got.Signature.Sig)
	require.Equal(0, got.Signature.Extra.Tip.Cmp(big.NewInt(7)))
	require.Equal(xt.Signature.Extra.Era, got.Signature.Extra.Era)
	require.Equal(xt.Hash(), got.Hash())
}

func TestTamperedExtrinsicFailsVerification(t *testing.T) {
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.NoError(err)
	xt, err := SignExtrinsic(MustCall(0, 1, nil), testExtra(0), key)
	require.NoError(err)

	xt.Signature.Extra.Nonce = 1
	require.ErrorIs(xt.VerifySignature(), ErrBadSignature)

	require.ErrorIs(NewUnsigned(MustCall(1, 0, nil)).VerifySignature(), ErrUnsigned)
}

func TestUnsignedExtrinsicRoundTrip(t *testing.T) {
	require := require.New(t)

	xt := NewUnsigned(MustCall(1, 0, []interface{}{uint64(1600000000000)}))
	raw, err := xt.MarshalBinary()
	require.NoError(err)

	got, err := DecodeExtrinsic(raw)
	require.NoError(err)
	require.False(got.IsSigned())
	require.Equal(xt.Call, got.Call)
}

func TestExtrinsicUnknownVersion(t *testing.T) {
	xt := NewUnsigned(MustCall(1, 0, nil))
	raw, err := xt.MarshalBinary()
	require.NoError(t, err)
	raw[0] = ExtrinsicVersion + 1
	_, err = DecodeExtrinsic(raw)
	require.ErrorIs(t, err, ErrUnknownExtrinsicVersion)
}

func TestEra(t *testing.T) {
	require := require.New(t)

	e := Mortal(100, 64)
	require.False(e.Contains(99))
	require.True(e.Contains(100))
	require.True(e.Contains(163))
	require.False(e.Contains(164))
	require.Equal(uint64(164), uint64(e.Death()))

	require.True(Immortal.Contains(0))
	require.True(Immortal.Contains(1 << 40))
}

func TestCallDecode(t *testing.T) {
	require := require.New(t)

	type args struct {
		A uint64
		B []byte
	}
	c, err := NewCall(3, 2, &args{A: 9, B: []byte{1}})
	require.NoError(err)

	var got args
	require.NoError(c.Decode(&got))
	require.Equal(args{A: 9, B: []byte{1}}, got)
}
