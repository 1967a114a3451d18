package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/slotserve/slotserve/internal/models"
)

// ErrNotFound is returned when an ad, asset or queue entry does not exist.
var ErrNotFound = errors.New("not found")

// Store is the accessor over the Redis key-value service holding ad metadata
// hashes, asset blobs, per-slot rotation queues and per-advertiser key sets.
// All cross-request coordination relies on Redis single-command atomicity;
// the Store itself keeps no mutable state.
type Store struct {
	Client *redis.Client
	ns     string
}

// New wraps an existing Redis client. The namespace prefixes every key.
func New(client *redis.Client, namespace string) *Store {
	return &Store{Client: client, ns: namespace}
}

// InitRedis connects to Redis, instruments the client for tracing and
// verifies the connection with a ping.
func InitRedis(ctx context.Context, addr, namespace string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return New(client, namespace), nil
}

func (s *Store) adKey(slot, id string) string {
	return s.ns + ":ad:" + slot + "-" + id
}

func (s *Store) assetKey(slot, id string) string {
	return s.ns + ":asset:" + slot + "-" + id
}

func (s *Store) advertiserKey(id string) string {
	return s.ns + ":advertiser:" + id
}

func (s *Store) slotKey(slot string) string {
	return s.ns + ":slot:" + slot
}

// NextID allocates the next global ad id from the atomic counter.
func (s *Store) NextID(ctx context.Context) (int64, error) {
	id, err := s.Client.Incr(ctx, s.ns+":ad-next").Result()
	if err != nil {
		return 0, fmt.Errorf("allocate ad id: %w", err)
	}
	return id, nil
}

// Create allocates an id and writes the metadata hash, the asset blob, the
// slot queue entry and the advertiser index entry, in that order. The writes
// are independent commands: a crash mid-sequence can leave an orphaned queue
// entry, which the rotator's stale-entry eviction cleans up later.
func (s *Store) Create(ctx context.Context, slot, title, contentType, advertiserID, destination string, asset []byte) (*models.Ad, error) {
	id, err := s.NextID(ctx)
	if err != nil {
		return nil, err
	}
	idStr := strconv.FormatInt(id, 10)

	key := s.adKey(slot, idStr)
	err = s.Client.HSet(ctx, key,
		"slot", slot,
		"id", idStr,
		"title", title,
		"type", contentType,
		"advertiser", advertiserID,
		"destination", destination,
		"impressions", "0",
	).Err()
	if err != nil {
		return nil, fmt.Errorf("write ad metadata: %w", err)
	}

	if err := s.Client.Set(ctx, s.assetKey(slot, idStr), asset, 0).Err(); err != nil {
		return nil, fmt.Errorf("write ad asset: %w", err)
	}
	// LPUSH puts the new id at the rotation queue's tail; RPOPLPUSH in
	// Rotate takes from the right, so ids come back in insertion order.
	if err := s.Client.LPush(ctx, s.slotKey(slot), idStr).Err(); err != nil {
		return nil, fmt.Errorf("enqueue ad: %w", err)
	}
	if err := s.Client.SAdd(ctx, s.advertiserKey(advertiserID), key).Err(); err != nil {
		return nil, fmt.Errorf("index ad for advertiser: %w", err)
	}

	return &models.Ad{
		Slot:        slot,
		ID:          id,
		Title:       title,
		Type:        contentType,
		Advertiser:  advertiserID,
		Destination: destination,
		Impressions: 0,
	}, nil
}

// Get reads the metadata hash for (slot, id). Returns ErrNotFound when the
// hash is absent or empty.
func (s *Store) Get(ctx context.Context, slot, id string) (*models.Ad, error) {
	return s.GetByKey(ctx, s.adKey(slot, id))
}

// GetByKey reads an ad metadata hash by its raw store key. Reporting uses
// this with keys enumerated from the advertiser index.
func (s *Store) GetByKey(ctx context.Context, key string) (*models.Ad, error) {
	m, err := s.Client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read ad metadata: %w", err)
	}
	if len(m) == 0 {
		return nil, ErrNotFound
	}
	if _, ok := m["id"]; !ok {
		return nil, ErrNotFound
	}
	return decodeAd(m), nil
}

// decodeAd converts a metadata hash into an Ad. Malformed numeric fields
// decode to zero rather than failing the read.
func decodeAd(m map[string]string) *models.Ad {
	id, _ := strconv.ParseInt(m["id"], 10, 64)
	impressions, _ := strconv.ParseInt(m["impressions"], 10, 64)
	return &models.Ad{
		Slot:        m["slot"],
		ID:          id,
		Title:       m["title"],
		Type:        m["type"],
		Advertiser:  m["advertiser"],
		Destination: m["destination"],
		Impressions: impressions,
	}
}

// GetAsset returns the stored binary asset for (slot, id).
func (s *Store) GetAsset(ctx context.Context, slot, id string) ([]byte, error) {
	data, err := s.Client.Get(ctx, s.assetKey(slot, id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read ad asset: %w", err)
	}
	return data, nil
}

// IncrementImpressions atomically adds one to the ad's impression counter.
// Returns ErrNotFound without touching the counter when the ad is absent.
func (s *Store) IncrementImpressions(ctx context.Context, slot, id string) error {
	key := s.adKey(slot, id)
	exists, err := s.Client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check ad existence: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	if err := s.Client.HIncrBy(ctx, key, "impressions", 1).Err(); err != nil {
		return fmt.Errorf("increment impressions: %w", err)
	}
	return nil
}

// AdvertiserAdKeys returns every ad store key recorded for the advertiser.
func (s *Store) AdvertiserAdKeys(ctx context.Context, advertiserID string) ([]string, error) {
	keys, err := s.Client.SMembers(ctx, s.advertiserKey(advertiserID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list advertiser ads: %w", err)
	}
	return keys, nil
}

// Rotate atomically moves one id from the slot queue's head to its tail and
// returns it. Returns ErrNotFound when the queue is empty.
func (s *Store) Rotate(ctx context.Context, slot string) (string, error) {
	key := s.slotKey(slot)
	id, err := s.Client.RPopLPush(ctx, key, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("rotate slot queue: %w", err)
	}
	return id, nil
}

// EvictQueueEntry removes every occurrence of id from the slot queue.
func (s *Store) EvictQueueEntry(ctx context.Context, slot, id string) error {
	if err := s.Client.LRem(ctx, s.slotKey(slot), 0, id).Err(); err != nil {
		return fmt.Errorf("evict queue entry: %w", err)
	}
	return nil
}

// QueueIDs returns the slot queue contents in rotation order: the id the
// next Rotate call would return comes first.
func (s *Store) QueueIDs(ctx context.Context, slot string) ([]string, error) {
	ids, err := s.Client.LRange(ctx, s.slotKey(slot), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read slot queue: %w", err)
	}
	// LRange walks left to right; rotation consumes from the right.
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids, nil
}

// QueueLen returns the number of entries in the slot queue, stale included.
func (s *Store) QueueLen(ctx context.Context, slot string) (int64, error) {
	n, err := s.Client.LLen(ctx, s.slotKey(slot)).Result()
	if err != nil {
		return 0, fmt.Errorf("read slot queue length: %w", err)
	}
	return n, nil
}

// Reset deletes every key in the store's namespace. Only the environment
// reset boundary operation uses this.
func (s *Store) Reset(ctx context.Context) error {
	iter := s.Client.Scan(ctx, 0, s.ns+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.Client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("delete key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan namespace: %w", err)
	}
	return nil
}

// Close shuts down the underlying Redis client.
func (s *Store) Close() {
	if s != nil && s.Client != nil {
		if err := s.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
