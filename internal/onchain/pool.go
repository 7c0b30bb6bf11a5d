package onchain

import "clmmctl/internal/types"

// DecodePool deserialises a PoolState from a raw account blob, rejecting
// with InvalidAccountData on wrong length, a mismatched discriminator, or
// a tick_spacing that isn't strictly positive (spec.md §4.3).
func DecodePool(address string, blob []byte) (*types.PoolState, error) {
	if len(blob) != poolAccountLen {
		return nil, invalidAccountData("pool account has unexpected length")
	}
	var disc [8]byte
	copy(disc[:], blob[:discriminatorLen])
	if disc != poolDiscriminator {
		return nil, invalidAccountData("pool account discriminator mismatch")
	}

	off := discriminatorLen
	tokenMintA := readAddress(blob[off : off+addressLen])
	off += addressLen
	tokenMintB := readAddress(blob[off : off+addressLen])
	off += addressLen
	tickCurrent := readInt32(blob[off : off+4])
	off += 4
	tickSpacing := readInt32(blob[off : off+4])
	off += 4
	sqrtPrice := readU128(blob[off : off+u128Len])
	off += u128Len
	liquidity := readU128(blob[off : off+u128Len])
	off += u128Len
	feeRateBps := readInt32(blob[off : off+4])
	off += 4
	feeGrowthA := readU128(blob[off : off+u128Len])
	off += u128Len
	feeGrowthB := readU128(blob[off : off+u128Len])

	if tickSpacing <= 0 {
		return nil, invalidAccountData("pool tick_spacing must be strictly positive")
	}

	return &types.PoolState{
		Address:          address,
		TokenMintA:       tokenMintA,
		TokenMintB:       tokenMintB,
		TickCurrent:      tickCurrent,
		TickSpacing:      tickSpacing,
		SqrtPriceX64:     sqrtPrice,
		Liquidity:        liquidity,
		FeeRateBps:       feeRateBps,
		FeeGrowthGlobalA: feeGrowthA,
		FeeGrowthGlobalB: feeGrowthB,
	}, nil
}
