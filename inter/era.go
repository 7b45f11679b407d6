package inter

import (
	"math"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

// Era is the validity window of a signed extrinsic: blocks in [Birth, Birth+Period).
// A zero Period makes the extrinsic immortal.
type Era struct {
	Birth  idx.Block
	Period uint64
}

var Immortal = Era{}

func Mortal(birth idx.Block, period uint64) Era {
	return Era{Birth: birth, Period: period}
}

func (e Era) IsImmortal() bool {
	return e.Period == 0
}

// Death is the first block at which the extrinsic is no longer valid.
func (e Era) Death() idx.Block {
	if e.IsImmortal() || math.MaxUint64-uint64(e.Birth) < e.Period {
		return idx.Block(math.MaxUint64)
	}
	return e.Birth + idx.Block(e.Period)
}

// Contains reports whether block n lies inside the window.
func (e Era) Contains(n idx.Block) bool {
	if e.IsImmortal() {
		return true
	}
	return n >= e.Birth && n < e.Death()
}
