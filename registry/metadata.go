package registry

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// CallMetadata describes one call of a module.
type CallMetadata struct {
	Index uint8    `json:"index"`
	Name  string   `json:"name"`
	Args  []string `json:"args,omitempty"`
}

// ModuleMetadata describes a module to host tooling.
type ModuleMetadata struct {
	Index        uint8          `json:"index"`
	Name         string         `json:"name"`
	Prefix       hexutil.Bytes  `json:"prefix"`
	Capabilities []string       `json:"capabilities"`
	Calls        []CallMetadata `json:"calls,omitempty"`
	Storage      []string       `json:"storage,omitempty"`
	Events       []string       `json:"events,omitempty"`
	Errors       []string       `json:"errors,omitempty"`
}
