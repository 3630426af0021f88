package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	id "aip/pkg/domain"
	dErrors "aip/pkg/domain-errors"
)

// StoreTx provides the transactional boundary for workflow mutations.
// Stores called with txCtx take part in the transaction.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// numTxShards bounds the number of per-project locks held by the in-memory
// transaction. Projects hashing to the same shard serialize.
const numTxShards = 128

const defaultTxTimeout = 5 * time.Second

type txShardKey struct{}

// withTxShard scopes the in-memory transaction to a project. Every mutation
// that touches a project's requests or level uses the same key.
func withTxShard(ctx context.Context, projectID id.ProjectID) context.Context {
	return context.WithValue(ctx, txShardKey{}, projectID.String())
}

type shardedStoreTx struct {
	shards  [numTxShards]sync.Mutex
	timeout time.Duration
}

// NewInMemoryTx returns a StoreTx for the in-memory stores. It serializes
// transactions per project via sharded mutexes.
func NewInMemoryTx() StoreTx {
	return &shardedStoreTx{timeout: defaultTxTimeout}
}

func (t *shardedStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := t.selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

func (t *shardedStoreTx) selectShard(ctx context.Context) int {
	key, ok := ctx.Value(txShardKey{}).(string)
	if !ok || key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % numTxShards)
}
