package onchain

import "clmmctl/internal/types"

// DecodePosition deserialises a PositionState from a raw account blob,
// rejecting with InvalidAccountData on wrong length, a mismatched
// discriminator, or a violation of tick_lower < tick_upper and both being
// multiples of tickSpacing (spec.md §3, §4.3).
func DecodePosition(address string, blob []byte, tickSpacing int32) (*types.PositionState, error) {
	if len(blob) != positionAccountLen {
		return nil, invalidAccountData("position account has unexpected length")
	}
	var disc [8]byte
	copy(disc[:], blob[:discriminatorLen])
	if disc != positionDiscriminator {
		return nil, invalidAccountData("position account discriminator mismatch")
	}

	off := discriminatorLen
	poolAddress := readAddress(blob[off : off+addressLen])
	off += addressLen
	owner := readAddress(blob[off : off+addressLen])
	off += addressLen
	tickLower := readInt32(blob[off : off+4])
	off += 4
	tickUpper := readInt32(blob[off : off+4])
	off += 4
	liquidity := readU128(blob[off : off+u128Len])
	off += u128Len
	feeGrowthCheckA := readU128(blob[off : off+u128Len])
	off += u128Len
	feeGrowthCheckB := readU128(blob[off : off+u128Len])
	off += u128Len
	feesOwedA := readU128(blob[off : off+u128Len])
	off += u128Len
	feesOwedB := readU128(blob[off : off+u128Len])

	if tickLower >= tickUpper {
		return nil, invalidAccountData("position tick_lower must be less than tick_upper")
	}
	if tickSpacing > 0 && (tickLower%tickSpacing != 0 || tickUpper%tickSpacing != 0) {
		return nil, invalidAccountData("position ticks must be multiples of tick_spacing")
	}

	return &types.PositionState{
		Address:         address,
		PoolAddress:     poolAddress,
		Owner:           owner,
		TickLower:       tickLower,
		TickUpper:       tickUpper,
		Liquidity:       liquidity,
		FeeGrowthCheckA: feeGrowthCheckA,
		FeeGrowthCheckB: feeGrowthCheckB,
		FeesOwedA:       feesOwedA,
		FeesOwedB:       feesOwedB,
	}, nil
}
