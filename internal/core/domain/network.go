package domain

import (
	"fmt"
	"strings"
)

// Network identifies the Dash network a wallet lives on.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkDevnet  Network = "devnet"
	NetworkRegtest Network = "regtest"
)

// ParseNetwork returns the Network matching the given name, case insensitive.
func ParseNetwork(name string) (Network, error) {
	n := Network(strings.ToLower(strings.TrimSpace(name)))
	if !n.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidNetwork, name)
	}
	return n, nil
}

func (n Network) IsValid() bool {
	switch n {
	case NetworkMainnet, NetworkTestnet, NetworkDevnet, NetworkRegtest:
		return true
	default:
		return false
	}
}

func (n Network) String() string {
	return string(n)
}

// Chain is the BIP44 change level of a derivation path.
type Chain uint32

const (
	// ExternalChain holds receive addresses.
	ExternalChain Chain = iota
	// InternalChain holds change addresses.
	InternalChain
)

func (c Chain) IsValid() bool {
	return c == ExternalChain || c == InternalChain
}

func (c Chain) String() string {
	switch c {
	case ExternalChain:
		return "external"
	case InternalChain:
		return "internal"
	default:
		return fmt.Sprintf("chain(%d)", uint32(c))
	}
}
