package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/heartmarshall/refdict/internal/domain"
)

// Validate performs business-rule validation on the loaded configuration and
// reports every violation at once as a *domain.ValidationError.
// Load calls it automatically.
func (c *Config) Validate() error {
	var errs []domain.FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, domain.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	c.Cache.validate(add)
	c.RefAPI.validate(add)
	c.Storage.validate(add)
	if c.Storage.Backend == BackendPostgres && strings.TrimSpace(c.Database.DSN) == "" {
		add("database.dsn", "required for the postgres backend")
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)) {
		add("log.level", "must be one of debug, info, warn, error (got %q)", c.Log.Level)
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

type addFn func(field, format string, args ...any)

func (c *CacheConfig) validate(add addFn) {
	if c.TTL <= 0 {
		add("cache.ttl", "must be > 0 (got %v)", c.TTL)
	}
	if c.FetchTimeout <= 0 {
		add("cache.fetch_timeout", "must be > 0 (got %v)", c.FetchTimeout)
	}
	if c.PageSize <= 0 || c.PageSize > 1000 {
		add("cache.page_size", "must be in [1, 1000] (got %d)", c.PageSize)
	}
	if c.MaxPages < 0 {
		add("cache.max_pages", "must be >= 0 (got %d)", c.MaxPages)
	}
	switch {
	case c.SnapshotKey == "" || c.TimestampKey == "":
		add("cache.snapshot_key", "snapshot_key and timestamp_key are required")
	case c.SnapshotKey == c.TimestampKey:
		add("cache.timestamp_key", "must differ from snapshot_key (both %q)", c.SnapshotKey)
	}
}

func (c *RefAPIConfig) validate(add addFn) {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		add("ref_api.base_url", "must be an absolute URL (got %q)", c.BaseURL)
	}
	if c.Timeout <= 0 {
		add("ref_api.timeout", "must be > 0 (got %v)", c.Timeout)
	}
	if c.RetryWait < 0 {
		add("ref_api.retry_wait", "must be >= 0 (got %v)", c.RetryWait)
	}
}

func (c *StorageConfig) validate(add addFn) {
	switch c.Backend {
	case BackendMemory, BackendPostgres:
	case BackendSQLite:
		if c.SQLitePath == "" {
			add("storage.sqlite_path", "required for the sqlite backend")
		}
	default:
		add("storage.backend", "must be one of memory, sqlite, postgres (got %q)", c.Backend)
	}
	if c.Namespace == "" {
		add("storage.namespace", "required")
	}
}
