package executive

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/rony4d/go-opera-runtime/inter"
	"github.com/rony4d/go-opera-runtime/opera/genesis"
	"github.com/rony4d/go-opera-runtime/registry"
)

// GenesisBuilder is implemented by modules with initial state.
type GenesisBuilder interface {
	BuildGenesis(ctx *registry.Context, g *genesis.Genesis) error
}

// ApplyGenesis writes the initial state of every module, commits it and returns block zero.
func (e *Executive) ApplyGenesis(g *genesis.Genesis) (*inter.Header, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != Idle {
		return nil, fmt.Errorf("%w: genesis in %s", ErrInvalidState, e.phase)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	o := e.backend.Begin()
	header := &inter.Header{}
	ctx := e.context(o, header)
	if e.system.GenesisHash(ctx) != hash.Zero {
		o.Discard()
		return nil, ErrGenesisApplied
	}

	var buildErr error
	err := guard(func() {
		for _, m := range e.registry.Ascending() {
			b, ok := m.(GenesisBuilder)
			if !ok {
				continue
			}
			if buildErr = b.BuildGenesis(ctx, g); buildErr != nil {
				buildErr = fmt.Errorf("%s genesis: %w", m.Name(), buildErr)
				return
			}
		}
		header.StateRoot = o.Root()
	})
	if err == nil {
		err = buildErr
	}
	if err != nil {
		o.Discard()
		return nil, err
	}
	header.ExtrinsicsRoot = hash.Hash(types.EmptyRootHash)

	if err := e.backend.Commit(o, header.StateRoot); err != nil {
		return nil, err
	}
	e.head = header.Copy()
	e.phase = Committed
	e.log.WithField("root", header.StateRoot.String()).WithField("hash", header.Hash().String()).Info("Genesis applied")
	return header, nil
}
