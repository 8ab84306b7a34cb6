package tradecfg

import (
	"github.com/zhitaogpt/BinanceAlphaTool/pkg/logger"
	"github.com/zhitaogpt/BinanceAlphaTool/pkg/persistence"
)

// Store 交易配置的持久化存储。
// 整条记录读写，不做字段级合并；记录缺失或损坏时静默回退内置默认值。
type Store struct {
	store persistence.Store
}

// NewStore 创建配置存储（固定命名记录 config:trader:trade）
func NewStore(service persistence.Service) *Store {
	return &Store{store: service.NewStore("config", "trader", "trade")}
}

// Load 加载配置；缺失/损坏时返回默认配置，不报错
func (s *Store) Load() TradeConfig {
	var cfg TradeConfig
	if err := s.store.Load(&cfg); err != nil {
		if err != persistence.ErrNotExists {
			logger.Warnf("配置记录损坏，回退默认配置: %v", err)
		}
		return Defaults()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		logger.Warnf("配置记录校验失败，回退默认配置: %v", err)
		return Defaults()
	}
	return cfg
}

// Save 整条覆盖写入
func (s *Store) Save(cfg TradeConfig) error {
	return s.store.Save(cfg)
}
