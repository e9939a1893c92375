package chain

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	apperrors "github.com/rent-to-earn/internal/errors"
	"github.com/rent-to-earn/internal/logging"
)

// SolanaReader reads escrow campaign state over Solana JSON-RPC. It derives
// the account addresses through the resolver and fetches raw account data
// with getAccountInfo / getBalance.
type SolanaReader struct {
	rpcURL   string
	client   *http.Client
	resolver *AccountResolver
	logger   *logging.Logger
}

// NewSolanaReader creates a reader against an RPC endpoint. A nil client
// falls back to a default with the given timeout.
func NewSolanaReader(rpcURL string, resolver *AccountResolver, client *http.Client, timeout time.Duration) *SolanaReader {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &SolanaReader{
		rpcURL:   rpcURL,
		client:   client,
		resolver: resolver,
		logger:   logging.GetGlobalLogger().WithField("component", "solana_reader"),
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type accountInfoResult struct {
	Value *struct {
		Data  []string `json:"data"`
		Owner string   `json:"owner"`
	} `json:"value"`
}

type balanceResult struct {
	Value uint64 `json:"value"`
}

// ReadCampaignState fetches and decodes the campaign escrow account.
func (r *SolanaReader) ReadCampaignState(ctx context.Context, chainCampaignID uint64) (*CampaignAccount, error) {
	address, _, err := r.resolver.DeriveCampaignAccount(chainCampaignID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to derive campaign account", err)
	}

	params := []interface{}{address, map[string]string{"encoding": "base64"}}

	var result accountInfoResult
	if err := r.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, ErrAccountNotFound
	}
	if len(result.Value.Data) == 0 {
		return nil, apperrors.NewChainUnavailableError(fmt.Errorf("account %s returned no data", address))
	}

	raw, err := base64.StdEncoding.DecodeString(result.Value.Data[0])
	if err != nil {
		return nil, apperrors.NewChainUnavailableError(fmt.Errorf("account %s data is not valid base64: %w", address, err))
	}

	account, err := DecodeCampaignAccount(raw)
	if err != nil {
		return nil, apperrors.NewChainUnavailableError(fmt.Errorf("failed to decode account %s: %w", address, err))
	}

	return account, nil
}

// ReadVaultBalance returns the lamport balance of the campaign vault. A
// nonexistent vault reads as zero.
func (r *SolanaReader) ReadVaultBalance(ctx context.Context, chainCampaignID uint64) (*big.Int, error) {
	address, _, err := r.resolver.DeriveVaultAccount(chainCampaignID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to derive vault account", err)
	}

	var result balanceResult
	if err := r.call(ctx, "getBalance", []interface{}{address}, &result); err != nil {
		return nil, err
	}

	return new(big.Int).SetUint64(result.Value), nil
}

// call executes one JSON-RPC request and unmarshals the result payload.
// Transport and protocol failures surface as CHAIN_UNAVAILABLE.
func (r *SolanaReader) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return apperrors.NewInternalError("failed to marshal RPC request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.rpcURL, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewInternalError("failed to build RPC request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.WithError(err).WithField("method", method).Warn("RPC request failed")
		return apperrors.NewChainUnavailableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.NewChainUnavailableError(fmt.Errorf("RPC %s returned HTTP %d", method, resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewChainUnavailableError(fmt.Errorf("failed to read RPC response: %w", err))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return apperrors.NewChainUnavailableError(fmt.Errorf("failed to parse RPC response: %w", err))
	}
	if rpcResp.Error != nil {
		return apperrors.NewChainUnavailableError(fmt.Errorf("RPC %s error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message))
	}

	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return apperrors.NewChainUnavailableError(fmt.Errorf("failed to parse RPC result: %w", err))
	}

	return nil
}
