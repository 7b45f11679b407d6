package inter

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// Call names a function of a module together with its encoded arguments.
// The runtime core routes calls by Module and never interprets Args.
type Call struct {
	Module   uint8
	Function uint8
	Args     []byte
}

// NewCall RLP-encodes args. A nil args produces an empty argument list.
func NewCall(module, function uint8, args interface{}) (Call, error) {
	c := Call{Module: module, Function: function}
	if args == nil {
		return c, nil
	}
	b, err := rlp.EncodeToBytes(args)
	if err != nil {
		return Call{}, err
	}
	c.Args = b
	return c, nil
}

func MustCall(module, function uint8, args interface{}) Call {
	c, err := NewCall(module, function, args)
	if err != nil {
		panic(err)
	}
	return c
}

// Decode RLP-decodes the arguments into v.
func (c Call) Decode(v interface{}) error {
	return rlp.DecodeBytes(c.Args, v)
}

func (c Call) String() string {
	return fmt.Sprintf("call(%d.%d, %d bytes)", c.Module, c.Function, len(c.Args))
}
