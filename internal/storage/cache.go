package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
)

// ResultCache stores serialized aggregation results, zstd-compressed, with a
// per-entry expiry. Expired entries are deleted when read.
type ResultCache struct {
	db  *DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	now func() time.Time
}

// NewResultCache creates a result cache on db
func NewResultCache(db *DB) (*ResultCache, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &ResultCache{db: db, enc: enc, dec: dec, now: time.Now}, nil
}

// Get returns the cached value for key. ok is false on a miss or an expired entry.
func (c *ResultCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var blob []byte
	var expiresAt string

	err := c.db.QueryRow(ctx,
		"SELECT value, expires_at FROM result_cache WHERE key = ?", key,
	).Scan(&blob, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("result cache lookup failed: %w", err)
	}

	expires, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return nil, false, fmt.Errorf("invalid expires_at format: %w", err)
	}
	if !c.now().Before(expires) {
		_, _ = c.db.Exec(ctx, "DELETE FROM result_cache WHERE key = ?", key)
		return nil, false, nil
	}

	value, err := c.dec.DecodeAll(blob, nil)
	if err != nil {
		// A corrupt entry is dropped and reported as a miss.
		_, _ = c.db.Exec(ctx, "DELETE FROM result_cache WHERE key = ?", key)
		return nil, false, nil
	}
	return value, true, nil
}

// Set stores value under key for ttl.
func (c *ResultCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.now().UTC()
	blob := c.enc.EncodeAll(value, make([]byte, 0, len(value)/4))

	_, err := c.db.Exec(ctx, `
		INSERT OR REPLACE INTO result_cache (key, value, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, key, blob, now.Format(time.RFC3339), now.Add(ttl).Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to set result cache: %w", err)
	}
	return nil
}

// Purge deletes expired entries and returns how many were removed.
func (c *ResultCache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.Exec(ctx,
		"DELETE FROM result_cache WHERE expires_at <= ?", c.now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to purge result cache: %w", err)
	}
	return res.RowsAffected()
}

// Clear deletes every entry.
func (c *ResultCache) Clear(ctx context.Context) error {
	if _, err := c.db.Exec(ctx, "DELETE FROM result_cache"); err != nil {
		return fmt.Errorf("failed to clear result cache: %w", err)
	}
	return nil
}

// Close releases the codec resources. The database stays open.
func (c *ResultCache) Close() error {
	c.dec.Close()
	return c.enc.Close()
}

// CacheKey hashes parts into a hex BLAKE2b-256 digest. Each part is length
// prefixed so that ("ab", "c") and ("a", "bc") differ.
func CacheKey(parts ...[]byte) string {
	h, _ := blake2b.New256(nil)
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
