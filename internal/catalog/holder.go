package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// HolderConfig locates the optional catalog override file.
type HolderConfig struct {
	// File is an explicit path. When empty, catalog.yml is searched for in
	// the standard config directories.
	File  string
	Watch bool
}

// Holder serves the current catalog snapshot and swaps it when the override
// file changes. Callers take one Snapshot per analysis batch.
type Holder struct {
	current atomic.Pointer[Catalog]
	log     *zap.Logger
}

// NewStaticHolder wraps a fixed catalog.
func NewStaticHolder(c *Catalog) *Holder {
	h := &Holder{log: zap.NewNop()}
	h.current.Store(c)
	return h
}

func NewHolder(cfg HolderConfig, log *zap.Logger) (*Holder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("catalog")

	v := viper.New()
	if file := strings.TrimSpace(cfg.File); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("catalog")
		v.SetConfigType("yml")
		v.AddConfigPath("/var/lib/seatwise/config")
		v.AddConfigPath("/etc/seatwise")
		v.AddConfigPath(".")
	}

	holder := &Holder{log: log}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read catalog config: %w", err)
		}
		holder.current.Store(Default())
		log.Info("catalog override not found, using built-in table", zap.Int("products", Default().Len()))
		return holder, nil
	}

	c, err := loadOverrides(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(c)
	log.Info("catalog loaded",
		zap.String("file", v.ConfigFileUsed()),
		zap.Int("products", c.Len()),
	)

	if cfg.Watch {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := loadOverrides(v)
			if err != nil {
				log.Warn("catalog reload rejected", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("catalog reloaded", zap.String("file", e.Name), zap.Int("products", updated.Len()))
		})
		v.WatchConfig()
	}

	return holder, nil
}

// Snapshot returns the catalog in effect now. The returned value never
// changes, even if the holder reloads.
func (h *Holder) Snapshot() *Catalog {
	return h.current.Load()
}

func loadOverrides(v *viper.Viper) (*Catalog, error) {
	var overrides []Entry
	if err := v.UnmarshalKey("catalog.entries", &overrides); err != nil {
		return nil, fmt.Errorf("decode catalog entries: %w", err)
	}

	entries := Builtin()
	if v.GetBool("catalog.replace_builtin") {
		if len(overrides) == 0 {
			return nil, errors.New("catalog.entries cannot be empty when replace_builtin is set")
		}
		entries = nil
	}
	entries = append(entries, overrides...)

	return New(entries)
}
