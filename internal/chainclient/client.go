// Package chainclient is a thin HTTP client for a TRON full node.
//
// All methods are network I/O and return a *NetworkError on transport or
// node-level failures, so callers can distinguish recoverable RPC trouble
// from their own logic errors with errors.As.
package chainclient

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// apiKeyHeader is the TronGrid API key header.
const apiKeyHeader = "TRON-PRO-API-KEY"

// NetworkError is returned when an RPC call fails at the transport or node
// level. It is recoverable by the caller's own retry/poll loop.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("chain rpc %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Client is an HTTP client for a TRON full node.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// New creates a client for the given full-node endpoint. The endpoint must
// be a well-formed absolute URL.
func New(endpoint, apiKey string, timeout time.Duration) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("malformed endpoint %q", endpoint)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// GetNowBlock returns the current head block.
func (c *Client) GetNowBlock(ctx context.Context) (*Block, error) {
	var block Block
	if err := c.post(ctx, "/wallet/getnowblock", nil, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// GetBlockByNum returns the block at the given height.
func (c *Client) GetBlockByNum(ctx context.Context, num int64) (*Block, error) {
	var block Block
	req := map[string]any{"num": num}
	if err := c.post(ctx, "/wallet/getblockbynum", req, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// GetAccount returns the on-chain account state for a hex-form address.
// Unactivated addresses yield an empty Account, not an error.
func (c *Client) GetAccount(ctx context.Context, addressHex string) (*Account, error) {
	var account Account
	req := map[string]any{"address": addressHex, "visible": false}
	if err := c.post(ctx, "/wallet/getaccount", req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetBalance returns the balance of a hex-form address in SUN.
func (c *Client) GetBalance(ctx context.Context, addressHex string) (int64, error) {
	account, err := c.GetAccount(ctx, addressHex)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// GetAccountResource returns the bandwidth state for a hex-form address.
func (c *Client) GetAccountResource(ctx context.Context, addressHex string) (*AccountResource, error) {
	var res AccountResource
	req := map[string]any{"address": addressHex, "visible": false}
	if err := c.post(ctx, "/wallet/getaccountresource", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetTransactionByID returns the raw transaction for a hash.
func (c *Client) GetTransactionByID(ctx context.Context, hash string) (*Transaction, error) {
	var tx Transaction
	req := map[string]any{"value": hash}
	if err := c.post(ctx, "/wallet/gettransactionbyid", req, &tx); err != nil {
		return nil, err
	}
	if tx.TxID == "" {
		return nil, &NetworkError{Op: "gettransactionbyid", Err: fmt.Errorf("transaction %s not found", hash)}
	}
	return &tx, nil
}

// GetTransactionInfoByID returns the post-execution info for a hash.
func (c *Client) GetTransactionInfoByID(ctx context.Context, hash string) (*TransactionInfo, error) {
	var info TransactionInfo
	req := map[string]any{"value": hash}
	if err := c.post(ctx, "/wallet/gettransactioninfobyid", req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CreateTransaction builds an unsigned TRX transfer from owner to recipient
// (both hex-form addresses) for the given SUN amount.
func (c *Client) CreateTransaction(ctx context.Context, ownerHex, toHex string, amountSun int64) (*Transaction, error) {
	var tx Transaction
	req := map[string]any{
		"owner_address": ownerHex,
		"to_address":    toHex,
		"amount":        amountSun,
		"visible":       false,
	}
	if err := c.post(ctx, "/wallet/createtransaction", req, &tx); err != nil {
		return nil, err
	}
	if tx.TxID == "" {
		return nil, &NetworkError{Op: "createtransaction", Err: fmt.Errorf("node returned no transaction")}
	}
	return &tx, nil
}

// BroadcastTransaction submits a signed transaction to the network and
// returns the node's receipt. A receipt with Result=false is not an error
// here; the caller decides how to surface rejection.
func (c *Client) BroadcastTransaction(ctx context.Context, tx *Transaction) (*BroadcastResult, error) {
	var result BroadcastResult
	if err := c.post(ctx, "/wallet/broadcasttransaction", tx, &result); err != nil {
		return nil, err
	}
	if result.TxID == "" {
		result.TxID = tx.TxID
	}
	return &result, nil
}

// GetChainParameter returns the value of one committee-governed parameter,
// or def when the node does not report it.
func (c *Client) GetChainParameter(ctx context.Context, key string, def int64) (int64, error) {
	var params chainParameters
	if err := c.post(ctx, "/wallet/getchainparameters", nil, &params); err != nil {
		return 0, err
	}
	for _, p := range params.ChainParameter {
		if p.Key == key {
			return p.Value, nil
		}
	}
	return def, nil
}

// DecodeMessage hex-decodes a broadcast receipt message into readable text.
// The node hex-encodes its rejection details.
func DecodeMessage(msg string) string {
	if msg == "" {
		return ""
	}
	decoded, err := hex.DecodeString(msg)
	if err != nil {
		return msg
	}
	return string(decoded)
}

// post issues one JSON POST to the node and unmarshals the response body
// into result. If result is nil, the body is discarded.
func (c *Client) post(ctx context.Context, path string, payload, result any) error {
	op := strings.TrimPrefix(path, "/wallet/")

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return &NetworkError{Op: op, Err: fmt.Errorf("http %d: %s", resp.StatusCode, data)}
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}
