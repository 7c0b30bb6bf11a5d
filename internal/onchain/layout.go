// Package onchain deserialises raw account blobs fetched through
// internal/chainfacade into the typed PoolState/PositionState snapshots
// C4 and friends consume (spec.md §4.3). The account layout below is this
// control plane's own (no particular on-chain program's wire format is
// assumed — the chain facade is explicitly non-goal §1's pluggable
// abstraction), but it follows the convention described in §6: an 8-byte
// discriminator prefix followed by fixed-width fields.
package onchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"clmmctl/internal/clmmerr"
)

// Discriminators tag the two account kinds this package understands.
var (
	poolDiscriminator     = [8]byte{'P', 'O', 'O', 'L', 0, 0, 0, 1}
	positionDiscriminator = [8]byte{'P', 'O', 'S', 'N', 0, 0, 0, 1}
)

const (
	discriminatorLen = 8
	addressLen       = 32
	u128Len          = 16

	poolAccountLen     = discriminatorLen + 2*addressLen + 4 + 4 + u128Len + u128Len + 4 + u128Len + u128Len     // 148
	positionAccountLen = discriminatorLen + 2*addressLen + 4 + 4 + u128Len + u128Len + u128Len + u128Len + u128Len // 160
)

func readU128(b []byte) decimal.Decimal {
	v := new(big.Int).SetBytes(reverse(b))
	return decimal.NewFromBigInt(v, 0)
}

func readAddress(b []byte) string {
	return common.BytesToHash(b).Hex()
}

// reverse returns a little-endian-to-big-endian byte-order flip without
// mutating the input slice (account blobs store multi-byte integers
// little-endian, matching the convention the chain facade's callers
// expect when building instructions).
func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

func invalidAccountData(reason string) error {
	return clmmerr.New(clmmerr.KindInvalidAccountData, reason, nil)
}

func readInt32(b []byte) int32 {
	return int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}
