package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ga4cli/internal/config"

	_ "github.com/marcboeker/go-duckdb"
	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"
)

const (
	CacheDirName = "cache"
	DefaultTTL   = 24 * time.Hour
	// Namespace used when no preset is active.
	DefaultNamespace = "default"
)

// MetadataCache keeps the dimension/metric catalog of properties in a local
// DuckDB file, one file per credential namespace. Report rows are never stored.
type MetadataCache struct {
	db        *sql.DB
	namespace string
	ttl       time.Duration
	now       func() time.Time
}

type Stats struct {
	Namespace    string     `json:"namespace"`
	Entries      int        `json:"entries"`
	ExpiredCount int        `json:"expired"`
	TotalHits    int        `json:"total_hits"`
	TotalMisses  int        `json:"total_misses"`
	HitRate      float64    `json:"hit_rate"`
	LastCleanup  *time.Time `json:"last_cleanup,omitempty"`
}

// DefaultPath returns ~/.ga4cli/cache/<namespace>.db, creating the directory.
func DefaultPath(namespace string) (string, error) {
	configDir, err := config.GetConfigDir()
	if err != nil {
		return "", err
	}

	cacheDir := filepath.Join(configDir, CacheDirName)
	if err := os.MkdirAll(cacheDir, 0o700); err != nil {
		return "", wrap.Error(err, "failed to create cache directory")
	}
	return filepath.Join(cacheDir, namespace+".db"), nil
}

// Open opens (or creates) the cache database at path. An empty path gives an
// in-memory database. A ttl of zero or less means DefaultTTL.
func Open(path string, namespace string, ttl time.Duration) (*MetadataCache, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, wrap.Error(err, "failed to open DuckDB connection")
	}
	db.SetMaxOpenConns(1)

	cache := &MetadataCache{db: db, namespace: namespace, ttl: ttl, now: time.Now}
	if err := cache.initializeTables(); err != nil {
		db.Close()
		return nil, wrap.Error(err, "failed to initialize cache tables")
	}

	log.Debug("Opened metadata cache", slog.String("path", path), slog.String("namespace", namespace))
	return cache, nil
}

func (c *MetadataCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *MetadataCache) initializeTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS metadata_cache (
			property_id VARCHAR NOT NULL,
			cache_type VARCHAR NOT NULL,
			data TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			PRIMARY KEY (property_id, cache_type)
		)`,
		`CREATE TABLE IF NOT EXISTS cache_stats (
			namespace VARCHAR PRIMARY KEY,
			total_hits INTEGER NOT NULL DEFAULT 0,
			total_misses INTEGER NOT NULL DEFAULT 0,
			last_cleanup TIMESTAMP
		)`,
	}

	for _, statement := range statements {
		if _, err := c.db.Exec(statement); err != nil {
			return wrap.Error(err, "failed to create table")
		}
	}

	_, err := c.db.Exec(`INSERT OR IGNORE INTO cache_stats (namespace) VALUES (?)`, c.namespace)
	return err
}

// CacheMetadata stores data as JSON under (property, cacheType), replacing any
// previous entry.
func (c *MetadataCache) CacheMetadata(ctx context.Context, property, cacheType string, data any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return wrap.Error(err, "failed to marshal metadata")
	}

	now := c.now().UTC()
	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO metadata_cache (property_id, cache_type, data, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, property, cacheType, string(encoded), now, now.Add(c.ttl))
	if err != nil {
		return wrap.Errorf(err, "failed to cache %s for '%s'", cacheType, property)
	}
	return nil
}

// GetCachedMetadata decodes a live entry into result. Expired entries count
// as misses and are removed.
func (c *MetadataCache) GetCachedMetadata(
	ctx context.Context,
	property, cacheType string,
	result any,
) (bool, error) {
	var data string
	var expiresAt time.Time

	err := c.db.QueryRowContext(ctx, `
		SELECT data, expires_at FROM metadata_cache
		WHERE property_id = ? AND cache_type = ?
	`, property, cacheType).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		c.recordLookup(ctx, false)
		return false, nil
	}
	if err != nil {
		return false, wrap.Error(err, "failed to query metadata cache")
	}

	if !c.now().UTC().Before(expiresAt) {
		c.recordLookup(ctx, false)
		if _, err := c.db.ExecContext(ctx, `
			DELETE FROM metadata_cache WHERE property_id = ? AND cache_type = ?
		`, property, cacheType); err != nil {
			log.ErrorCause(err, "Failed to remove expired cache entry", slog.String("property", property))
		}
		return false, nil
	}

	if err := json.Unmarshal([]byte(data), result); err != nil {
		return false, wrap.Error(err, "failed to unmarshal cached metadata")
	}

	c.recordLookup(ctx, true)
	return true, nil
}

// Clear removes cached entries for one property, or all entries when property is empty.
func (c *MetadataCache) Clear(ctx context.Context, property string) (int, error) {
	var result sql.Result
	var err error
	if property == "" {
		result, err = c.db.ExecContext(ctx, `DELETE FROM metadata_cache`)
	} else {
		result, err = c.db.ExecContext(ctx, `DELETE FROM metadata_cache WHERE property_id = ?`, property)
	}
	if err != nil {
		return 0, wrap.Error(err, "failed to clear metadata cache")
	}
	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}

// Cleanup removes expired entries and records the cleanup time.
func (c *MetadataCache) Cleanup(ctx context.Context) (int, error) {
	now := c.now().UTC()

	result, err := c.db.ExecContext(ctx, `DELETE FROM metadata_cache WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, wrap.Error(err, "failed to remove expired cache entries")
	}
	deleted, _ := result.RowsAffected()

	if _, err := c.db.ExecContext(ctx, `
		UPDATE cache_stats SET last_cleanup = ? WHERE namespace = ?
	`, now, c.namespace); err != nil {
		return int(deleted), wrap.Error(err, "failed to record cleanup time")
	}
	return int(deleted), nil
}

func (c *MetadataCache) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Namespace: c.namespace}

	var lastCleanup sql.NullTime
	err := c.db.QueryRowContext(ctx, `
		SELECT total_hits, total_misses, last_cleanup FROM cache_stats WHERE namespace = ?
	`, c.namespace).Scan(&stats.TotalHits, &stats.TotalMisses, &lastCleanup)
	if err != nil {
		return Stats{}, wrap.Error(err, "failed to read cache statistics")
	}
	if lastCleanup.Valid {
		stats.LastCleanup = &lastCleanup.Time
	}

	if total := stats.TotalHits + stats.TotalMisses; total > 0 {
		stats.HitRate = float64(stats.TotalHits) / float64(total) * 100
	}

	err = c.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE expires_at <= ?) FROM metadata_cache
	`, c.now().UTC()).Scan(&stats.Entries, &stats.ExpiredCount)
	if err != nil {
		return Stats{}, wrap.Error(err, "failed to count cache entries")
	}

	return stats, nil
}

// recordLookup updates hit/miss counters. Failures are only logged.
func (c *MetadataCache) recordLookup(ctx context.Context, hit bool) {
	column := "total_misses"
	if hit {
		column = "total_hits"
	}

	_, err := c.db.ExecContext(ctx,
		`UPDATE cache_stats SET `+column+` = `+column+` + 1 WHERE namespace = ?`,
		c.namespace,
	)
	if err != nil {
		log.ErrorCause(err, "Failed to update cache statistics")
	}
}
