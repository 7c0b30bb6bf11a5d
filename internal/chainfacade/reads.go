package chainfacade

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"clmmctl/internal/clmmerr"
)

// SignatureStatus mirrors the chain's signature-status read, used by both
// GetSignatureStatus and C9's confirmation polling.
type SignatureStatus struct {
	Slot              uint64
	ConfirmationStatus string
	Err               string
}

type accountResult struct {
	Data [2]string `json:"data"` // [base64 payload, encoding]
}

// GetAccount fetches and base64-decodes a single account's data, returning
// clmmerr.KindNotFound if the account doesn't exist.
func (f *Facade) GetAccount(ctx context.Context, address string) ([]byte, error) {
	raw, err := f.call(ctx, "getAccountInfo", []any{address, map[string]any{"encoding": "base64", "commitment": string(f.cfg.Commitment)}})
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Value *accountResult `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, clmmerr.Wrap(clmmerr.KindTransient, err, "decode getAccountInfo result")
	}
	if wrapper.Value == nil {
		return nil, clmmerr.New(clmmerr.KindNotFound, "account not found: "+address, nil)
	}
	return base64.StdEncoding.DecodeString(wrapper.Value.Data[0])
}

// GetMultipleAccounts fetches a batch, returning a nil slot for any
// address the chain reports as missing rather than failing the whole
// batch (the batched tolerance spec.md §4.3 requires of C3).
func (f *Facade) GetMultipleAccounts(ctx context.Context, addresses []string) ([][]byte, error) {
	raw, err := f.call(ctx, "getMultipleAccounts", []any{addresses, map[string]any{"encoding": "base64", "commitment": string(f.cfg.Commitment)}})
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Value []*accountResult `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, clmmerr.Wrap(clmmerr.KindTransient, err, "decode getMultipleAccounts result")
	}

	out := make([][]byte, len(wrapper.Value))
	for i, v := range wrapper.Value {
		if v == nil {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(v.Data[0])
		if err != nil {
			continue
		}
		out[i] = decoded
	}
	return out, nil
}

// GetSlot returns the current slot at the configured commitment level.
func (f *Facade) GetSlot(ctx context.Context) (uint64, error) {
	raw, err := f.call(ctx, "getSlot", []any{map[string]any{"commitment": string(f.cfg.Commitment)}})
	if err != nil {
		return 0, err
	}
	var slot uint64
	if err := json.Unmarshal(raw, &slot); err != nil {
		return 0, clmmerr.Wrap(clmmerr.KindTransient, err, "decode getSlot result")
	}
	return slot, nil
}

// GetLatestBlockhash returns the recent blockhash used to build a
// transaction (C9's Built step).
func (f *Facade) GetLatestBlockhash(ctx context.Context) (string, error) {
	raw, err := f.call(ctx, "getLatestBlockhash", []any{map[string]any{"commitment": string(f.cfg.Commitment)}})
	if err != nil {
		return "", err
	}
	var wrapper struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return "", clmmerr.Wrap(clmmerr.KindTransient, err, "decode getLatestBlockhash result")
	}
	return wrapper.Value.Blockhash, nil
}

// GetBalance returns the native-token balance of address in lamports.
func (f *Facade) GetBalance(ctx context.Context, address string) (uint64, error) {
	raw, err := f.call(ctx, "getBalance", []any{address, map[string]any{"commitment": string(f.cfg.Commitment)}})
	if err != nil {
		return 0, err
	}
	var wrapper struct {
		Value uint64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return 0, clmmerr.Wrap(clmmerr.KindTransient, err, "decode getBalance result")
	}
	return wrapper.Value, nil
}

// GetSignatureStatus polls the status of a single submitted transaction.
func (f *Facade) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	statuses, err := f.GetSignatureStatuses(ctx, []string{signature})
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, nil
	}
	return statuses[0], nil
}

// GetSignatureStatuses batches a status poll across many signatures, used
// by C9's confirmation loop.
func (f *Facade) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	raw, err := f.call(ctx, "getSignatureStatuses", []any{signatures, map[string]any{"searchTransactionHistory": true}})
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Value []*struct {
			Slot               uint64 `json:"slot"`
			ConfirmationStatus string `json:"confirmationStatus"`
			Err                any    `json:"err"`
		} `json:"value"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, clmmerr.Wrap(clmmerr.KindTransient, err, "decode getSignatureStatuses result")
	}

	out := make([]*SignatureStatus, len(wrapper.Value))
	for i, v := range wrapper.Value {
		if v == nil {
			continue
		}
		status := &SignatureStatus{Slot: v.Slot, ConfirmationStatus: v.ConfirmationStatus}
		if v.Err != nil {
			if b, err := json.Marshal(v.Err); err == nil {
				status.Err = string(b)
			}
		}
		out[i] = status
	}
	return out, nil
}
