package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = 24 * time.Hour

type DedupRepository struct {
	rdb *redis.Client
}

func NewDedupRepository(rdb *redis.Client) *DedupRepository {
	return &DedupRepository{rdb: rdb}
}

// MarkSeen records an envelope digest and reports whether it was new.
func (r *DedupRepository) MarkSeen(ctx context.Context, digest string) (bool, error) {
	return r.rdb.SetNX(ctx, "envelope:"+digest, 1, dedupTTL).Result()
}
