// Package chain talks to an EVM node over JSON-RPC. It submits notarization
// transactions and reads receipts; signing is left to the node's unlocked
// account.
package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"aip/internal/anchor/models"
	"aip/pkg/platform/circuit"
	"aip/pkg/proofhash"
)

// ErrCircuitOpen is returned without contacting the node while the breaker
// is open.
var ErrCircuitOpen = errors.New("chain rpc circuit open")

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

var (
	notarizeSelector = proofhash.Selector("notarize(bytes32,bytes32)")
	gweiDivisor      = decimal.New(1, 9)
)

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Client is a minimal Ethereum JSON-RPC client.
type Client struct {
	url     string
	http    *http.Client
	breaker *circuit.Breaker
	nextID  atomic.Int64
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

func NewClient(url string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		url:     url,
		http:    &http.Client{Timeout: timeout},
		breaker: circuit.New("chain-rpc"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NotarizeCalldata encodes notarize(bytes32 reference, bytes32 dataHash).
func NotarizeCalldata(reference, dataHash proofhash.Hash) []byte {
	data := make([]byte, 0, 4+2*proofhash.Size)
	data = append(data, notarizeSelector[:]...)
	data = append(data, reference[:]...)
	data = append(data, dataHash[:]...)
	return data
}

// Tx is an unsigned transaction for eth_sendTransaction.
type Tx struct {
	From string
	To   string
	Data []byte
}

// SendTransaction submits tx and returns its hash.
func (c *Client) SendTransaction(ctx context.Context, tx Tx) (string, error) {
	params := map[string]string{
		"from": tx.From,
		"to":   tx.To,
		"data": "0x" + hex.EncodeToString(tx.Data),
	}
	var hash string
	if err := c.call(ctx, "eth_sendTransaction", []any{params}, &hash); err != nil {
		return "", err
	}
	if _, err := proofhash.Parse(hash); err != nil {
		return "", fmt.Errorf("node returned malformed tx hash %q: %w", hash, err)
	}
	return strings.ToLower(hash), nil
}

type rpcReceipt struct {
	TransactionHash   string `json:"transactionHash"`
	BlockNumber       string `json:"blockNumber"`
	Status            string `json:"status"`
	GasUsed           string `json:"gasUsed"`
	EffectiveGasPrice string `json:"effectiveGasPrice"`
}

// TransactionReceipt returns nil without error while the transaction is not
// yet mined.
func (c *Client) TransactionReceipt(ctx context.Context, txHash string) (*models.Receipt, error) {
	var raw *rpcReceipt
	if err := c.call(ctx, "eth_getTransactionReceipt", []any{txHash}, &raw); err != nil {
		return nil, err
	}
	if raw == nil || raw.BlockNumber == "" {
		return nil, nil
	}
	block, err := parseQuantity(raw.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("receipt blockNumber: %w", err)
	}
	gasUsed, err := parseQuantity(raw.GasUsed)
	if err != nil {
		return nil, fmt.Errorf("receipt gasUsed: %w", err)
	}
	price := decimal.Zero
	if raw.EffectiveGasPrice != "" {
		wei, ok := new(big.Int).SetString(strings.TrimPrefix(raw.EffectiveGasPrice, "0x"), 16)
		if !ok {
			return nil, fmt.Errorf("receipt effectiveGasPrice: invalid quantity %q", raw.EffectiveGasPrice)
		}
		price = decimal.NewFromBigInt(wei, 0).Div(gweiDivisor)
	}
	return &models.Receipt{
		TxHash:       strings.ToLower(raw.TransactionHash),
		BlockNumber:  block,
		Succeeded:    raw.Status == "0x1",
		GasUsed:      gasUsed,
		GasPriceGwei: price,
	}, nil
}

// BlockNumber returns the current chain head.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var head string
	if err := c.call(ctx, "eth_blockNumber", []any{}, &head); err != nil {
		return 0, err
	}
	return parseQuantity(head)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// call performs one JSON-RPC round trip through the circuit breaker. Node
// level errors (RPCError) count as successes for the breaker: the endpoint
// answered.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	if !c.breaker.Allow() {
		return ErrCircuitOpen
	}
	err := c.roundTrip(ctx, method, params, out)
	var rpcErr *RPCError
	if err != nil && !errors.As(err, &rpcErr) {
		c.breaker.RecordFailure()
		return err
	}
	c.breaker.RecordSuccess()
	return err
}

func (c *Client) roundTrip(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("%s: unexpected http status %d", method, resp.StatusCode)
	}
	var rpcResp rpcResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out == nil || len(rpcResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

func parseQuantity(s string) (uint64, error) {
	if !strings.HasPrefix(s, "0x") {
		return 0, fmt.Errorf("quantity %q is not 0x-prefixed", s)
	}
	return strconv.ParseUint(s[2:], 16, 64)
}
