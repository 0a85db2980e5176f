// Package auth resolves API keys to the caller identity they attest. The
// identity returned here is what initialize records as authority.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrMissingKey = errors.New("missing key")

// IdentityResolver validates API keys and optionally provides a health ping.
type IdentityResolver interface {
	Resolve(ctx context.Context, key string) (identity sol.PublicKey, ok bool, err error)
	Ping(ctx context.Context) error
}

// IdentityBinder binds an API key to an identity for the admin handler.
type IdentityBinder interface {
	Bind(ctx context.Context, key string, identity sol.PublicKey, active bool) error
}

type cacheEntry struct {
	identity  sol.PublicKey
	active    bool
	expiresAt time.Time
}

// keyCache is the TTL cache in front of a key lookup, negative results included.
type keyCache struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]cacheEntry
}

func newKeyCache(ttl time.Duration) *keyCache {
	return &keyCache{ttl: ttl, items: make(map[string]cacheEntry)}
}

func (c *keyCache) get(hash string) (cacheEntry, bool) {
	c.mu.RLock()
	ce, ok := c.items[hash]
	c.mu.RUnlock()
	if !ok || !time.Now().Before(ce.expiresAt) {
		return cacheEntry{}, false
	}
	return ce, true
}

func (c *keyCache) put(hash string, identity sol.PublicKey, active bool) {
	c.mu.Lock()
	c.items[hash] = cacheEntry{identity: identity, active: active, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

type MongoIdentityStore struct {
	coll  *mongo.Collection
	cache *keyCache
}

// Keys are stored as SHA-256 hex, never in plain text.
type apiKeyDoc struct {
	KeyHash  string `bson:"key_hash"`
	Identity string `bson:"identity"`
	Active   bool   `bson:"active"`
}

// NewMongoIdentityStore sets up the collection and unique index on key_hash.
func NewMongoIdentityStore(ctx context.Context, client *mongo.Client, dbName string, ttl time.Duration) (*MongoIdentityStore, error) {
	coll := client.Database(dbName).Collection("api_keys")
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key_hash", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &MongoIdentityStore{coll: coll, cache: newKeyCache(ttl)}, nil
}

func (s *MongoIdentityStore) Resolve(ctx context.Context, key string) (sol.PublicKey, bool, error) {
	if key == "" {
		return sol.PublicKey{}, false, ErrMissingKey
	}
	h := hashKey(key)
	if ce, ok := s.cache.get(h); ok {
		return ce.identity, ce.active, nil
	}
	var doc apiKeyDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "key_hash", Value: h}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// cache negative result briefly to avoid hammering DB
		s.cache.put(h, sol.PublicKey{}, false)
		return sol.PublicKey{}, false, nil
	}
	if err != nil {
		return sol.PublicKey{}, false, err
	}
	id, err := sol.PublicKeyFromBase58(doc.Identity)
	if err != nil {
		return sol.PublicKey{}, false, err
	}
	s.cache.put(h, id, doc.Active)
	return id, doc.Active, nil
}

func (s *MongoIdentityStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

// Bind inserts or replaces the binding for key and refreshes the cache.
func (s *MongoIdentityStore) Bind(ctx context.Context, key string, identity sol.PublicKey, active bool) error {
	if key == "" {
		return ErrMissingKey
	}
	h := hashKey(key)
	_, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "key_hash", Value: h}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "identity", Value: identity.String()}, {Key: "active", Value: active}}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return err
	}
	s.cache.put(h, identity, active)
	return nil
}

// MemoryIdentityStore keeps bindings in process, for the memory ledger.
type MemoryIdentityStore struct {
	mu       sync.RWMutex
	bindings map[string]cacheEntry
}

func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{bindings: make(map[string]cacheEntry)}
}

func (s *MemoryIdentityStore) Resolve(_ context.Context, key string) (sol.PublicKey, bool, error) {
	if key == "" {
		return sol.PublicKey{}, false, ErrMissingKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bindings[hashKey(key)]
	if !ok {
		return sol.PublicKey{}, false, nil
	}
	return b.identity, b.active, nil
}

func (s *MemoryIdentityStore) Ping(context.Context) error { return nil }

func (s *MemoryIdentityStore) Bind(_ context.Context, key string, identity sol.PublicKey, active bool) error {
	if key == "" {
		return ErrMissingKey
	}
	s.mu.Lock()
	s.bindings[hashKey(key)] = cacheEntry{identity: identity, active: active}
	s.mu.Unlock()
	return nil
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// HashPrefix returns the first 8 hex chars of SHA-256(key) for logging.
func HashPrefix(key string) string {
	return hashKey(key)[:8]
}
