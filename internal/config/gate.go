package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// GateConfig holds the hot-reloadable settings of the access gate and the
// catalog surface it protects.
type GateConfig struct {
	ResolveTimeout  time.Duration `mapstructure:"resolveTimeout"`
	PlanPath        string        `mapstructure:"planPath"`
	LoginPath       string        `mapstructure:"loginPath"`
	CatalogCacheTTL time.Duration `mapstructure:"catalogCacheTTL"`
	Rows            []RowConfig   `mapstructure:"rows"`
}

// RowConfig places one titled row on the home surface. Key names a catalog
// category, or RowKeyMyList for the viewer's saved titles.
type RowConfig struct {
	Key   string `mapstructure:"key"`
	Title string `mapstructure:"title"`
}

const RowKeyMyList = "my_list"

func DefaultGateConfig() GateConfig {
	return GateConfig{
		ResolveTimeout:  10 * time.Second,
		PlanPath:        "/plan",
		LoginPath:       "/login",
		CatalogCacheTTL: 30 * time.Minute,
		Rows: []RowConfig{
			{Key: "trending", Title: "Trending Now"},
			{Key: "top_rated", Title: "Top Rated"},
			{Key: "action", Title: "Action Thrillers"},
			{Key: RowKeyMyList, Title: "My List"},
			{Key: "comedy", Title: "Comedies"},
			{Key: "horror", Title: "Scary Movies"},
			{Key: "romance", Title: "Romance Movies"},
			{Key: "documentaries", Title: "Documentaries"},
		},
	}
}

type GateConfigHolder struct {
	current atomic.Value // holds GateConfig
}

// NewStaticGateConfigHolder returns a holder that never reloads.
func NewStaticGateConfigHolder(cfg GateConfig) *GateConfigHolder {
	holder := &GateConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewGateConfigHolder(log *zap.Logger) (*GateConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.gate")

	v := viper.New()

	v.SetConfigName("gate")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/streamgate/config")
	v.AddConfigPath("/etc/streamgate")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STREAMGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultGateConfig()
	found := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		found = false
	}
	if found {
		if err := v.UnmarshalKey("gate", &cfg); err != nil {
			return nil, err
		}
	}
	if err := validateGateConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticGateConfigHolder(cfg)
	if !found {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := DefaultGateConfig()
		if err := v.UnmarshalKey("gate", &updated); err != nil {
			log.Warn("gate config reload failed", zap.Error(err))
			return
		}
		if err := validateGateConfig(updated); err != nil {
			log.Warn("invalid gate config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("gate config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *GateConfigHolder) Get() GateConfig {
	return h.current.Load().(GateConfig)
}

// ResolveTimeout bounds how long the gate waits on identity or billing state.
func (h *GateConfigHolder) ResolveTimeout() time.Duration {
	return h.Get().ResolveTimeout
}

func validateGateConfig(cfg GateConfig) error {
	if cfg.ResolveTimeout <= 0 {
		return errors.New("gate.resolveTimeout must be positive")
	}
	if !strings.HasPrefix(cfg.PlanPath, "/") {
		return errors.New("gate.planPath must be an absolute path")
	}
	if !strings.HasPrefix(cfg.LoginPath, "/") {
		return errors.New("gate.loginPath must be an absolute path")
	}
	if len(cfg.Rows) == 0 {
		return errors.New("gate.rows cannot be empty")
	}
	for _, row := range cfg.Rows {
		if strings.TrimSpace(row.Key) == "" || strings.TrimSpace(row.Title) == "" {
			return errors.New("gate.rows entries need a key and a title")
		}
	}
	return nil
}
