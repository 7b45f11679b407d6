package validatorpk

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const rawHex = "045b86101f804f3f4f2012ef31fff807e87de579a3faa7947d1b487a810e35dc2c3b6071ac465046634b5f4a8e09bf8e1f2e7eccb699356b9e6fd496ca4b1677d1"

func TestFromString(t *testing.T) {
	require := require.New(t)

	exp := PubKey{Type: Types.Secp256k1, Raw: common.FromHex(rawHex)}
	for _, s := range []string{"c0" + rawHex, "0xc0" + rawHex} {
		got, err := FromString(s)
		require.NoError(err)
		require.Equal(exp, got)
	}
	for _, s := range []string{"", "0x"} {
		_, err := FromString(s)
		require.ErrorIs(err, ErrEmptyPubKey, s)
	}
	for _, s := range []string{"-", "0xc", "c0" + rawHex[1:], "0xzz"} {
		_, err := FromString(s)
		require.ErrorIs(err, ErrMalformedPubKey, s)
	}
	require.Equal("0xc0"+rawHex, exp.String())
}

func TestJSON(t *testing.T) {
	require := require.New(t)

	pk := PubKey{Type: Types.Secp256k1, Raw: common.FromHex(rawHex)}
	b, err := json.Marshal(&pk)
	require.NoError(err)
	require.Equal(`"0xc0`+rawHex+`"`, string(b))

	var got PubKey
	require.NoError(json.Unmarshal(b, &got))
	require.True(pk.Equal(got))
}

func TestCopyAndEmpty(t *testing.T) {
	require := require.New(t)

	require.True(PubKey{}.Empty())
	pk := PubKey{Type: Types.Secp256k1, Raw: []byte{1, 2}}
	cp := pk.Copy()
	cp.Raw[0] = 9
	require.Equal(byte(1), pk.Raw[0])
	require.False(pk.Empty())
}

func TestVerify(t *testing.T) {
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.NoError(err)
	pk := FromECDSA(&key.PublicKey)
	require.Len(pk.Raw, CompressedSize)

	digest := crypto.Keccak256([]byte("payload"))
	sig, err := crypto.Sign(digest, key)
	require.NoError(err)
	require.True(pk.Verify(digest, sig))
	require.False(pk.Verify(crypto.Keccak256([]byte("other")), sig))
	require.False(pk.Verify(digest, sig[:10]))
}

func TestSessionKeys(t *testing.T) {
	require := require.New(t)

	pub, priv, err := GenerateSessionKeys([]byte("//Alice"))
	require.NoError(err)
	require.Len(priv, len(SessionKeyTypes))

	again, _, err := GenerateSessionKeys([]byte("//Alice"))
	require.NoError(err)
	require.Equal(pub, again, "seeded generation is deterministic")

	other, _, err := GenerateSessionKeys([]byte("//Bob"))
	require.NoError(err)
	require.NotEqual(pub.Babe, other.Babe)

	enc, err := pub.Encode()
	require.NoError(err)
	require.Len(enc, SessionKeysSize)

	dec, err := DecodeSessionKeys(enc)
	require.NoError(err)
	require.Equal(pub, dec)
	for _, tk := range dec.Typed() {
		require.Equal(FromECDSA(&priv[tk.Type].PublicKey), tk.Key)
	}

	_, err = DecodeSessionKeys(enc[:len(enc)-1])
	require.ErrorIs(err, ErrBadSessionKeysSize)
	_, err = DecodeSessionKeys(append(enc, 0))
	require.ErrorIs(err, ErrBadSessionKeysSize)
}

func TestParseKeyType(t *testing.T) {
	kt, err := ParseKeyType("gran")
	require.NoError(t, err)
	require.Equal(t, Grandpa, kt)
	_, err = ParseKeyType("nope")
	require.ErrorIs(t, err, ErrUnknownKeyType)
}
