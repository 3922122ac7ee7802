package model

import "strings"

const (
	PoolNRFD  = "0x5121f6d8954fc6086649b826026739881a8f80c2"
	PoolNWETH = "0x90e7a93e0a6514cb0c84fc7acc1cb5c0793352d2"
)

// Pool identifies one of the watched liquidity pools and how its trades
// are worded in notifications.
type Pool struct {
	Address string `json:"address"`
	// Title is the pair name shown in notification headers.
	Title  string `json:"title"`
	Token0 string `json:"token0"`
	Token1 string `json:"token1"`
	// Token1Verb precedes token1 when the trader receives it.
	Token1Verb string `json:"token1Verb"`
}

// KnownPools is the static set of pools with notification profiles.
// WETH is shown as ETH.
var KnownPools = []Pool{
	{Address: PoolNRFD, Title: "N/RFD", Token0: "N", Token1: "RFD", Token1Verb: "Got"},
	{Address: PoolNWETH, Title: "N/ETH", Token0: "N", Token1: "ETH", Token1Verb: "Received"},
}

// LookupPool finds a known pool by address, ignoring hex case.
func LookupPool(address string) (Pool, bool) {
	for _, pool := range KnownPools {
		if strings.EqualFold(pool.Address, address) {
			return pool, true
		}
	}
	return Pool{}, false
}

// DefaultPoolAddresses returns the addresses of all known pools.
func DefaultPoolAddresses() []string {
	out := make([]string, 0, len(KnownPools))
	for _, pool := range KnownPools {
		out = append(out, pool.Address)
	}
	return out
}
