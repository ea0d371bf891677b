package config

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.RateLimitPerMinute == 0 {
		cfg.Server.RateLimitPerMinute = 20
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/shinbun/data/db/shinbun.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/shinbun/data/indices/articles.bleve"
	}
	if cfg.Recommend.CorpusPath == "" {
		cfg.Recommend.CorpusPath = "/usr/local/var/shinbun/data/news_category.jsonl"
	}
	if cfg.Recommend.TopK == 0 {
		cfg.Recommend.TopK = 3
	}
	if cfg.Recommend.CacheSize == 0 {
		cfg.Recommend.CacheSize = 1024
	}
	if cfg.Recommend.Debounce == 0 {
		cfg.Recommend.Debounce = 400 * time.Millisecond
	}
	// Watch defaults to true when unset (nil).
	if cfg.Recommend.Watch == nil {
		t := true
		cfg.Recommend.Watch = &t
	}
	if cfg.Auth.AccessTTL == 0 {
		cfg.Auth.AccessTTL = 15 * time.Minute
	}
	if cfg.Auth.RefreshTTL == 0 {
		cfg.Auth.RefreshTTL = 24 * time.Hour
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "shinbun"
	}
}
