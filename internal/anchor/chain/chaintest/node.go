// Package chaintest provides an in-process JSON-RPC node for anchor tests.
package chaintest

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"aip/pkg/proofhash"
)

// Node answers eth_sendTransaction, eth_getTransactionReceipt and
// eth_blockNumber from in-memory state.
type Node struct {
	Server *httptest.Server

	mu        sync.Mutex
	head      uint64
	sent      []SentTx
	receipts  map[string]receipt
	failSends bool
	rpcErrors map[string]int
	calls     map[string]int
}

// SentTx is a transaction the node accepted.
type SentTx struct {
	Hash string
	From string
	To   string
	Data []byte
}

type receipt struct {
	block    uint64
	reverted bool
	gasUsed  uint64
	priceWei uint64
}

func NewNode(t *testing.T) *Node {
	t.Helper()
	n := &Node{
		head:      100,
		receipts:  make(map[string]receipt),
		rpcErrors: make(map[string]int),
		calls:     make(map[string]int),
	}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.Server.Close)
	return n
}

func (n *Node) URL() string { return n.Server.URL }

// SetHead moves the chain head.
func (n *Node) SetHead(block uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.head = block
}

// Mine records a receipt for txHash at block.
func (n *Node) Mine(txHash string, block uint64, reverted bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receipts[strings.ToLower(txHash)] = receipt{block: block, reverted: reverted, gasUsed: 45_000, priceWei: 30_000_000_000}
}

// RejectSends makes eth_sendTransaction return a JSON-RPC error.
func (n *Node) RejectSends(reject bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failSends = reject
}

// FailNext makes the next count calls of method return an HTTP 503.
func (n *Node) FailNext(method string, count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rpcErrors[method] = count
}

func (n *Node) Sent() []SentTx {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentTx(nil), n.sent...)
}

func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

type request struct {
	ID     int64             `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[req.Method]++
	if left := n.rpcErrors[req.Method]; left > 0 {
		n.rpcErrors[req.Method] = left - 1
		http.Error(w, "node unavailable", http.StatusServiceUnavailable)
		return
	}

	var (
		result any
		rpcErr map[string]any
	)
	switch req.Method {
	case "eth_blockNumber":
		result = fmt.Sprintf("0x%x", n.head)
	case "eth_sendTransaction":
		if n.failSends {
			rpcErr = map[string]any{"code": -32000, "message": "insufficient funds for gas"}
			break
		}
		var tx struct {
			From string `json:"from"`
			To   string `json:"to"`
			Data string `json:"data"`
		}
		_ = json.Unmarshal(req.Params[0], &tx)
		data, _ := hex.DecodeString(strings.TrimPrefix(tx.Data, "0x"))
		hash := proofhash.Sum([]byte(fmt.Sprintf("%s:%d", tx.Data, len(n.sent)))).Hex()
		n.sent = append(n.sent, SentTx{Hash: hash, From: tx.From, To: tx.To, Data: data})
		result = hash
	case "eth_getTransactionReceipt":
		var hash string
		_ = json.Unmarshal(req.Params[0], &hash)
		rc, ok := n.receipts[strings.ToLower(hash)]
		if !ok {
			result = nil
			break
		}
		status := "0x1"
		if rc.reverted {
			status = "0x0"
		}
		result = map[string]string{
			"transactionHash":   hash,
			"blockNumber":       fmt.Sprintf("0x%x", rc.block),
			"status":            status,
			"gasUsed":           fmt.Sprintf("0x%x", rc.gasUsed),
			"effectiveGasPrice": fmt.Sprintf("0x%x", rc.priceWei),
		}
	default:
		rpcErr = map[string]any{"code": -32601, "message": "method not found"}
	}

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
