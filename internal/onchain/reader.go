package onchain

import (
	"context"

	"clmmctl/internal/types"
)

// Facade is the subset of chainfacade.Facade the readers depend on,
// declared locally so this package can be tested without spinning up an
// HTTP server (the teacher's blackholedex.ContractClient interface plays
// the same narrowing role against ethclient.Client).
type Facade interface {
	GetAccount(ctx context.Context, address string) ([]byte, error)
	GetMultipleAccounts(ctx context.Context, addresses []string) ([][]byte, error)
}

// Reader fetches and decodes pool/position accounts through a Facade.
type Reader struct {
	facade Facade
}

func NewReader(facade Facade) *Reader {
	return &Reader{facade: facade}
}

// GetPool fetches and decodes one pool account.
func (r *Reader) GetPool(ctx context.Context, address string) (*types.PoolState, error) {
	blob, err := r.facade.GetAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	return DecodePool(address, blob)
}

// GetPosition fetches and decodes one position account. tickSpacing
// should come from the owning pool, already fetched by the caller; pass 0
// to skip the spacing-alignment check when it isn't yet known.
func (r *Reader) GetPosition(ctx context.Context, address string, tickSpacing int32) (*types.PositionState, error) {
	blob, err := r.facade.GetAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	return DecodePosition(address, blob, tickSpacing)
}

// GetMultiplePools fetches a batch of pool accounts, tolerating missing
// accounts by mapping them to a nil slot rather than failing the whole
// batch (spec.md §4.3).
func (r *Reader) GetMultiplePools(ctx context.Context, addresses []string) ([]*types.PoolState, error) {
	blobs, err := r.facade.GetMultipleAccounts(ctx, addresses)
	if err != nil {
		return nil, err
	}

	out := make([]*types.PoolState, len(addresses))
	for i, blob := range blobs {
		if blob == nil {
			continue
		}
		pool, err := DecodePool(addresses[i], blob)
		if err != nil {
			continue
		}
		out[i] = pool
	}
	return out, nil
}
