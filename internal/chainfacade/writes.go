package chainfacade

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"clmmctl/internal/clmmerr"
)

// SimulateTransaction dry-runs a signed, serialised transaction. On success
// it returns the compute-unit estimate; on simulation failure it returns
// clmmerr.NewSimulationFailed carrying the simulation log lines (C9's
// Built -> Simulated step, spec.md §4.9).
func (f *Facade) SimulateTransaction(ctx context.Context, raw []byte) (int64, error) {
	encoded := base64.StdEncoding.EncodeToString(raw)

	result, err := f.call(ctx, "simulateTransaction", []any{encoded, map[string]any{
		"encoding":   "base64",
		"commitment": string(f.cfg.Commitment),
	}})
	if err != nil {
		return 0, err
	}

	var wrapper struct {
		Value struct {
			Err           any      `json:"err"`
			Logs          []string `json:"logs"`
			UnitsConsumed int64    `json:"unitsConsumed"`
		} `json:"value"`
	}
	if err := json.Unmarshal(result, &wrapper); err != nil {
		return 0, clmmerr.Wrap(clmmerr.KindTransient, err, "decode simulateTransaction result")
	}
	if wrapper.Value.Err != nil {
		return 0, clmmerr.NewSimulationFailed(wrapper.Value.Logs)
	}
	return wrapper.Value.UnitsConsumed, nil
}

// SendTransaction submits a signed, serialised transaction and returns its
// signature. Transport failures surface as clmmerr.KindTransient so C9 can
// retry with a refreshed blockhash.
func (f *Facade) SendTransaction(ctx context.Context, raw []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(raw)

	result, err := f.call(ctx, "sendTransaction", []any{encoded, map[string]any{
		"encoding":   "base64",
		"commitment": string(f.cfg.Commitment),
	}})
	if err != nil {
		return "", err
	}

	var signature string
	if err := json.Unmarshal(result, &signature); err != nil {
		return "", clmmerr.Wrap(clmmerr.KindTransient, err, "decode sendTransaction result")
	}
	return signature, nil
}
