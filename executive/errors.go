package executive

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

var (
	// ErrInvalidState is returned when an operation is called out of order.
	ErrInvalidState = errors.New("operation not allowed in the current execution state")

	ErrUnexpectedNumber       = errors.New("block number does not follow the last block")
	ErrUnexpectedParent       = errors.New("parent hash is not the last block")
	ErrBadHeader              = errors.New("header rejected")
	ErrInherentOrder          = errors.New("inherent after a non-inherent extrinsic")
	ErrInadmissible           = errors.New("listed extrinsic is not admissible")
	ErrWeightOverflow         = errors.New("block weight exceeds the limit")
	ErrStateRootMismatch      = errors.New("state root mismatch")
	ErrExtrinsicsRootMismatch = errors.New("extrinsics root mismatch")
	ErrDigestMismatch         = errors.New("digest mismatch")
	ErrGenesisApplied         = errors.New("genesis is already applied")
	ErrNoGenesis              = errors.New("genesis is not applied")
)

// FatalError aborts the block being executed. Nothing of the block is committed.
type FatalError struct {
	Block idx.Block
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("block %d aborted: %v", e.Block, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err aborted a block.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// recovered converts a value recovered from a panicking module into an error.
func recovered(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
