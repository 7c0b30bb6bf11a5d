package onchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putAddress(buf []byte, off int, b byte) {
	for i := 0; i < addressLen; i++ {
		buf[off+i] = b
	}
}

func putInt32(buf []byte, off int, v int32) {
	u := uint32(v)
	buf[off] = byte(u)
	buf[off+1] = byte(u >> 8)
	buf[off+2] = byte(u >> 16)
	buf[off+3] = byte(u >> 24)
}

func putU128(buf []byte, off int, v uint64) {
	// little-endian, low 8 bytes carry v, high 8 bytes stay zero
	for i := 0; i < 8; i++ {
		buf[off+i] = byte(v >> (8 * i))
	}
}

func buildPoolBlob(tickCurrent, tickSpacing int32) []byte {
	buf := make([]byte, poolAccountLen)
	copy(buf[:8], poolDiscriminator[:])
	off := 8
	putAddress(buf, off, 0xAA)
	off += addressLen
	putAddress(buf, off, 0xBB)
	off += addressLen
	putInt32(buf, off, tickCurrent)
	off += 4
	putInt32(buf, off, tickSpacing)
	off += 4
	putU128(buf, off, 1<<40)
	off += u128Len
	putU128(buf, off, 5000)
	off += u128Len
	putInt32(buf, off, 30)
	off += 4
	putU128(buf, off, 100)
	off += u128Len
	putU128(buf, off, 200)
	return buf
}

func buildPositionBlob(tickLower, tickUpper int32) []byte {
	buf := make([]byte, positionAccountLen)
	copy(buf[:8], positionDiscriminator[:])
	off := 8
	putAddress(buf, off, 0xCC)
	off += addressLen
	putAddress(buf, off, 0xDD)
	off += addressLen
	putInt32(buf, off, tickLower)
	off += 4
	putInt32(buf, off, tickUpper)
	off += 4
	putU128(buf, off, 42)
	off += u128Len
	putU128(buf, off, 1)
	off += u128Len
	putU128(buf, off, 2)
	off += u128Len
	putU128(buf, off, 3)
	off += u128Len
	putU128(buf, off, 4)
	return buf
}

func TestDecodePoolSuccess(t *testing.T) {
	blob := buildPoolBlob(100, 64)
	pool, err := DecodePool("pool1", blob)
	require.NoError(t, err)
	assert.Equal(t, int32(100), pool.TickCurrent)
	assert.Equal(t, int32(64), pool.TickSpacing)
	assert.True(t, pool.Liquidity.IsPositive())
}

func TestDecodePoolRejectsWrongLength(t *testing.T) {
	_, err := DecodePool("pool1", []byte{1, 2, 3})
	require.Error(t, err)
}

func TestDecodePoolRejectsBadDiscriminator(t *testing.T) {
	blob := buildPoolBlob(100, 64)
	blob[0] = 'X'
	_, err := DecodePool("pool1", blob)
	require.Error(t, err)
}

func TestDecodePoolRejectsNonPositiveSpacing(t *testing.T) {
	blob := buildPoolBlob(100, 0)
	_, err := DecodePool("pool1", blob)
	require.Error(t, err)
}

func TestDecodePositionSuccess(t *testing.T) {
	blob := buildPositionBlob(-128, 128)
	pos, err := DecodePosition("pos1", blob, 64)
	require.NoError(t, err)
	assert.Equal(t, int32(-128), pos.TickLower)
	assert.Equal(t, int32(128), pos.TickUpper)
	assert.True(t, pos.InRange(0))
	assert.False(t, pos.InRange(128))
}

func TestDecodePositionRejectsMisorderedTicks(t *testing.T) {
	blob := buildPositionBlob(128, -128)
	_, err := DecodePosition("pos1", blob, 64)
	require.Error(t, err)
}

func TestDecodePositionRejectsUnalignedTicks(t *testing.T) {
	blob := buildPositionBlob(-100, 128)
	_, err := DecodePosition("pos1", blob, 64)
	require.Error(t, err)
}
