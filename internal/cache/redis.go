package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ncbi/ncbi-cxx-toolkit-public-sub014/internal/model"
)

// RedisTier keeps the cache in redis, one hash per accession or secondary id
type RedisTier struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisTier connects to redis and checks the connection
func NewRedisTier(host string, port int, password string, db int, logger *zap.Logger) (*RedisTier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTier{client: client, logger: logger}, nil
}

func bioseqHash(accession string) string { return "bi:" + accession }
func si2csiHash(secSeqID string) string  { return "si:" + secSeqID }

// FetchBioseqInfo reads the accession hash and filters by key
func (r *RedisTier) FetchBioseqInfo(ctx context.Context, key model.BioseqKey) ([]model.BioseqRecord, error) {
	fields, err := r.client.HGetAll(ctx, bioseqHash(key.Accession)).Result()
	if err != nil {
		return nil, err
	}
	var out []model.BioseqRecord
	for _, v := range fields {
		var rec model.BioseqRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bioseq_info: %w", err)
		}
		if key.Matches(rec) {
			out = append(out, rec)
		}
	}
	sortBioseq(out)
	return out, nil
}

// FetchSi2csi reads the secondary id hash and filters by type
func (r *RedisTier) FetchSi2csi(ctx context.Context, key model.Si2csiKey) ([]model.Si2csiRecord, error) {
	fields, err := r.client.HGetAll(ctx, si2csiHash(key.SecSeqID)).Result()
	if err != nil {
		return nil, err
	}
	var out []model.Si2csiRecord
	for _, v := range fields {
		var rec model.Si2csiRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal si2csi: %w", err)
		}
		if key.Matches(rec) {
			out = append(out, rec)
		}
	}
	sortSi2csi(out)
	return out, nil
}

// PutBioseqInfo stores a record under its key fields
func (r *RedisTier) PutBioseqInfo(ctx context.Context, rec model.BioseqRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal bioseq_info: %w", err)
	}
	return r.client.HSet(ctx, bioseqHash(rec.Accession), string(bioseqKey(rec)), data).Err()
}

// PutSi2csi stores a mapping under its key fields
func (r *RedisTier) PutSi2csi(ctx context.Context, rec model.Si2csiRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal si2csi: %w", err)
	}
	return r.client.HSet(ctx, si2csiHash(rec.SecSeqID), string(si2csiKey(rec)), data).Err()
}

// Ping checks the Redis connection
func (r *RedisTier) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (r *RedisTier) Close() error {
	return r.client.Close()
}
