package chainfacade

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"clmmctl/internal/clmmerr"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// call issues one JSON-RPC request against the selected endpoint, failing
// over and retrying through Facade.execute. A non-2xx HTTP status or a
// populated RPC error object is treated as a Transient failure so the
// retry loop rotates endpoints; callers get back the raw result payload.
func (f *Facade) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	var result json.RawMessage

	err := f.execute(ctx, func(ctx context.Context, ep *endpointState) error {
		req := rpcRequest{JSONRPC: "2.0", ID: f.nextRequestID(), Method: method, Params: params}
		body, err := json.Marshal(req)
		if err != nil {
			return clmmerr.Wrap(clmmerr.KindInternal, err, "marshal rpc request")
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.url, bytes.NewReader(body))
		if err != nil {
			return clmmerr.Wrap(clmmerr.KindTransient, err, "build rpc request")
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := f.client.StandardClient().Do(httpReq)
		if err != nil {
			return clmmerr.Wrap(clmmerr.KindTransient, err, "rpc transport error against %s", ep.url)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return clmmerr.Wrap(clmmerr.KindTransient, err, "read rpc response from %s", ep.url)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return clmmerr.New(clmmerr.KindTransient, fmt.Sprintf("rpc %s returned status %d", ep.url, resp.StatusCode), nil)
		}

		var envelope rpcResponse
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return clmmerr.Wrap(clmmerr.KindTransient, err, "decode rpc envelope from %s", ep.url)
		}
		if envelope.Error != nil {
			return clmmerr.New(clmmerr.KindTransient, fmt.Sprintf("rpc error %d: %s", envelope.Error.Code, envelope.Error.Message), nil)
		}

		result = envelope.Result
		return nil
	})

	return result, err
}
