package chainfacade

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcServer(t *testing.T, handler func(method string, params []json.RawMessage) (any, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		result, rpcErr := handler(req.Method, req.Params)
		resp := rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
		if rpcErr == nil {
			raw, _ := json.Marshal(result)
			resp.Result = raw
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestGetSlotAgainstFakeServer(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		if method != "getSlot" {
			return nil, &rpcError{Code: -1, Message: "unexpected method"}
		}
		return 12345, nil
	})
	defer srv.Close()

	cfg := DefaultConfig(srv.URL)
	cfg.MaxRetries = 1
	facade := New(cfg)

	slot, err := facade.GetSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), slot)
}

func TestGetAccountNotFound(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		return map[string]any{"value": nil}, nil
	})
	defer srv.Close()

	facade := New(DefaultConfig(srv.URL))
	_, err := facade.GetAccount(context.Background(), "addr1")
	require.Error(t, err)
}

func TestGetAccountDecodesBase64(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("hello-account"))
	srv := rpcServer(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		return map[string]any{"value": map[string]any{"data": [2]string{payload, "base64"}}}, nil
	})
	defer srv.Close()

	facade := New(DefaultConfig(srv.URL))
	data, err := facade.GetAccount(context.Background(), "addr1")
	require.NoError(t, err)
	assert.Equal(t, "hello-account", string(data))
}

func TestFailoverToFallbackOnPrimaryError(t *testing.T) {
	var primaryCalls int32
	primary := rpcServer(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		atomic.AddInt32(&primaryCalls, 1)
		return nil, &rpcError{Code: -32000, Message: "primary down"}
	})
	defer primary.Close()

	fallback := rpcServer(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		return 999, nil
	})
	defer fallback.Close()

	cfg := DefaultConfig(primary.URL)
	cfg.FallbackURLs = []string{fallback.URL}
	cfg.MaxRetries = 4
	cfg.RetryBaseDelayMs = 1
	cfg.RetryMaxDelayMs = 5
	cfg.UnhealthyThreshold = 1
	facade := New(cfg)

	slot, err := facade.GetSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(999), slot)
}

func TestExecuteExhaustsRetries(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		return nil, &rpcError{Code: -1, Message: "always fails"}
	})
	defer srv.Close()

	cfg := DefaultConfig(srv.URL)
	cfg.MaxRetries = 2
	cfg.RetryBaseDelayMs = 1
	cfg.RetryMaxDelayMs = 2
	facade := New(cfg)

	_, err := facade.GetSlot(context.Background())
	require.Error(t, err)
}

func TestMultipleAccountsToleratesMissing(t *testing.T) {
	srv := rpcServer(t, func(method string, params []json.RawMessage) (any, *rpcError) {
		present := base64.StdEncoding.EncodeToString([]byte("present"))
		return map[string]any{"value": []any{
			map[string]any{"data": [2]string{present, "base64"}},
			nil,
		}}, nil
	})
	defer srv.Close()

	facade := New(DefaultConfig(srv.URL))
	results, err := facade.GetMultipleAccounts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "present", string(results[0]))
	assert.Nil(t, results[1])
}

func TestSelectEndpointPrefersHealthyLowestLatency(t *testing.T) {
	facade := New(Config{
		PrimaryURL:         "http://a",
		FallbackURLs:       []string{"http://b"},
		UnhealthyThreshold: 3,
		RecoveryTimeout:    time.Minute,
	})
	slow, fast := facade.endpoints[0], facade.endpoints[1]
	slow.recordSuccess(100 * time.Millisecond)
	fast.recordSuccess(1 * time.Millisecond)

	chosen := facade.selectEndpoint()
	assert.Equal(t, fast.url, chosen.url)

	for i := 0; i < 3; i++ {
		fast.recordFailure()
	}
	chosen = facade.selectEndpoint()
	assert.Equal(t, slow.url, chosen.url)
}
