package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// StorageConventions controls how build ids and organization containers are named.
type StorageConventions struct {
	// DefaultContainer is the shared container that holds builds not owned by an organization.
	DefaultContainer string `mapstructure:"defaultContainer"`
	// LegacyContainer resolves build ids stored before the container prefix existed.
	LegacyContainer string `mapstructure:"legacyContainer"`
	// OrganizationPrefix is prepended to the organization id to name its container.
	OrganizationPrefix string `mapstructure:"organizationPrefix"`
	// DefaultContentType is applied to uploads that do not declare one.
	DefaultContentType string `mapstructure:"defaultContentType"`
}

func DefaultStorageConventions() StorageConventions {
	return StorageConventions{
		DefaultContainer:   "unity-builds",
		LegacyContainer:    "unity-builds",
		OrganizationPrefix: "org-",
		DefaultContentType: "application/zip",
	}
}

type StorageConventionsHolder struct {
	current atomic.Value // holds StorageConventions
}

// NewStorageConventionsHolder loads storage.yml and keeps it fresh while the process runs.
func NewStorageConventionsHolder(log *zap.Logger) (*StorageConventionsHolder, error) {
	v := viper.New()

	v.SetConfigName("storage")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/formationdesk/config")
	v.AddConfigPath("/etc/formationdesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FORMATIONDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultStorageConventions()
	v.SetDefault("storage.defaultContainer", defaults.DefaultContainer)
	v.SetDefault("storage.legacyContainer", defaults.LegacyContainer)
	v.SetDefault("storage.organizationPrefix", defaults.OrganizationPrefix)
	v.SetDefault("storage.defaultContentType", defaults.DefaultContentType)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg StorageConventions
	if err := v.UnmarshalKey("storage", &cfg); err != nil {
		return nil, err
	}
	if err := ValidateStorageConventions(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticStorageConventions(cfg)
	if !fileLoaded {
		return holder, nil
	}

	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("storage.config")

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated StorageConventions
		if err := v.UnmarshalKey("storage", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := ValidateStorageConventions(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticStorageConventions returns a holder that never reloads.
func NewStaticStorageConventions(cfg StorageConventions) *StorageConventionsHolder {
	holder := &StorageConventionsHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *StorageConventionsHolder) Get() StorageConventions {
	if h == nil {
		return DefaultStorageConventions()
	}
	return h.current.Load().(StorageConventions)
}

func ValidateStorageConventions(cfg StorageConventions) error {
	if strings.TrimSpace(cfg.DefaultContainer) == "" {
		return errors.New("storage.defaultContainer cannot be empty")
	}
	if strings.TrimSpace(cfg.LegacyContainer) == "" {
		return errors.New("storage.legacyContainer cannot be empty")
	}
	if strings.TrimSpace(cfg.OrganizationPrefix) == "" {
		return errors.New("storage.organizationPrefix cannot be empty")
	}
	for _, name := range []string{cfg.DefaultContainer, cfg.LegacyContainer, cfg.OrganizationPrefix} {
		if strings.Contains(name, ":") {
			return errors.New("container names cannot contain ':'")
		}
	}
	return nil
}
