package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// OriginKind is who authorized a call.
type OriginKind uint8

const (
	// NoneOrigin is an unsigned extrinsic: an inherent or a specially validated call.
	NoneOrigin OriginKind = iota
	SignedOrigin
	// RootOrigin is the runtime itself, e.g. genesis or a hook.
	RootOrigin
)

type Origin struct {
	Kind   OriginKind
	Signer common.Address
}

func Signed(addr common.Address) Origin {
	return Origin{Kind: SignedOrigin, Signer: addr}
}

func None() Origin {
	return Origin{Kind: NoneOrigin}
}

func Root() Origin {
	return Origin{Kind: RootOrigin}
}

func (o Origin) EnsureSigned() (common.Address, error) {
	if o.Kind != SignedOrigin {
		return common.Address{}, ErrBadOrigin
	}
	return o.Signer, nil
}

func (o Origin) EnsureNone() error {
	if o.Kind != NoneOrigin {
		return ErrBadOrigin
	}
	return nil
}

func (o Origin) EnsureRoot() error {
	if o.Kind != RootOrigin {
		return ErrBadOrigin
	}
	return nil
}

func (o Origin) String() string {
	switch o.Kind {
	case NoneOrigin:
		return "none"
	case SignedOrigin:
		return "signed(" + o.Signer.Hex() + ")"
	case RootOrigin:
		return "root"
	}
	return fmt.Sprintf("origin(%d)", uint8(o.Kind))
}
