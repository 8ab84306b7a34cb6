package tradecfg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// 默认交易参数（沿用线上脚本的取值）
const (
	DefaultFromToken          = "USDT"
	DefaultToToken            = "KOGE"
	DefaultContractAddress    = "0xe6df05ce8c8301223373cf5b969afcb1498c5528"
	DefaultChainID            = "56"
	DefaultMinAmount          = 10.0
	DefaultMaxAmount          = 10.0
	DefaultTargetVolume       = 1000.0
	DefaultMaxLossRate        = 0.01
	DefaultMinBalanceRequired = 10.0
	DefaultCycleIntervalSec   = 60.0
	DefaultRetryDelaySec      = 30.0
	DefaultFillPollSec        = 10.0
	DefaultCustomSlippage     = "0.001"
)

// TradeConfig 交易参数。循环开始时整体快照一份，运行中修改只对下一个循环生效。
type TradeConfig struct {
	FromToken       string `json:"fromToken" yaml:"fromToken"`
	ToToken         string `json:"toToken" yaml:"toToken"`
	ContractAddress string `json:"contractAddress" yaml:"contractAddress"`
	FromChainID     string `json:"fromChainId" yaml:"fromChainId"`
	ToChainID       string `json:"toChainId" yaml:"toChainId"`

	// 每次买入金额在 [MinAmount, MaxAmount] 内均匀随机
	MinAmount float64 `json:"minAmount" yaml:"minAmount"`
	MaxAmount float64 `json:"maxAmount" yaml:"maxAmount"`

	// 累计买入量达到 TargetVolume 后自动停止
	TargetVolume float64 `json:"targetVolume" yaml:"targetVolume"`

	// MaxLossRate 目前只用于超损告警，不影响循环控制
	MaxLossRate        float64 `json:"maxLossRate" yaml:"maxLossRate"`
	MinBalanceRequired float64 `json:"minBalanceRequired" yaml:"minBalanceRequired"`

	// 循环节奏：成功后的常规间隔、失败后的额外退避
	CycleIntervalSec float64 `json:"cycleIntervalSec" yaml:"cycleIntervalSec"`
	RetryDelaySec    float64 `json:"retryDelaySec" yaml:"retryDelaySec"`

	// MaxCycles 循环次数上限，0 表示不限制
	MaxCycles int `json:"maxCycles" yaml:"maxCycles"`

	// 成交确认轮询（FillTimeoutSec 为 0 时跳过确认，直接信任下单响应）
	FillPollIntervalSec float64 `json:"fillPollIntervalSec" yaml:"fillPollIntervalSec"`
	FillTimeoutSec      float64 `json:"fillTimeoutSec" yaml:"fillTimeoutSec"`

	CustomSlippage string `json:"customSlippage" yaml:"customSlippage"`
}

// Defaults 返回内置默认配置
func Defaults() TradeConfig {
	cfg := TradeConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults 填充零值字段
func (c *TradeConfig) ApplyDefaults() {
	if c.FromToken == "" {
		c.FromToken = DefaultFromToken
	}
	if c.ToToken == "" {
		c.ToToken = DefaultToToken
	}
	if c.ContractAddress == "" {
		c.ContractAddress = DefaultContractAddress
	}
	if c.FromChainID == "" {
		c.FromChainID = DefaultChainID
	}
	if c.ToChainID == "" {
		c.ToChainID = DefaultChainID
	}
	if c.MinAmount == 0 {
		c.MinAmount = DefaultMinAmount
	}
	if c.MaxAmount == 0 {
		c.MaxAmount = DefaultMaxAmount
	}
	if c.TargetVolume == 0 {
		c.TargetVolume = DefaultTargetVolume
	}
	if c.MaxLossRate == 0 {
		c.MaxLossRate = DefaultMaxLossRate
	}
	if c.MinBalanceRequired == 0 {
		c.MinBalanceRequired = DefaultMinBalanceRequired
	}
	if c.CycleIntervalSec == 0 {
		c.CycleIntervalSec = DefaultCycleIntervalSec
	}
	if c.RetryDelaySec == 0 {
		c.RetryDelaySec = DefaultRetryDelaySec
	}
	if c.FillPollIntervalSec == 0 {
		c.FillPollIntervalSec = DefaultFillPollSec
	}
	if c.CustomSlippage == "" {
		c.CustomSlippage = DefaultCustomSlippage
	}
}

// Validate 校验配置
func (c *TradeConfig) Validate() error {
	if c.FromToken == "" || c.ToToken == "" {
		return fmt.Errorf("fromToken/toToken 不能为空")
	}
	if c.MinAmount < 0 || c.MaxAmount < 0 {
		return fmt.Errorf("交易金额不能为负: min=%.4f max=%.4f", c.MinAmount, c.MaxAmount)
	}
	if c.MinAmount > c.MaxAmount {
		return fmt.Errorf("minAmount (%.4f) 不能大于 maxAmount (%.4f)", c.MinAmount, c.MaxAmount)
	}
	if c.TargetVolume < 0 {
		return fmt.Errorf("targetVolume 不能为负: %.4f", c.TargetVolume)
	}
	if c.MinBalanceRequired < 0 {
		return fmt.Errorf("minBalanceRequired 不能为负: %.4f", c.MinBalanceRequired)
	}
	if c.CycleIntervalSec < 0 || c.RetryDelaySec < 0 {
		return fmt.Errorf("循环间隔不能为负")
	}
	if c.MaxCycles < 0 {
		return fmt.Errorf("maxCycles 不能为负: %d", c.MaxCycles)
	}
	return nil
}

// LoadFile 从 .yaml/.yml/.json 文件加载初始配置，未设置的字段补默认值
func LoadFile(path string) (TradeConfig, error) {
	cfg := TradeConfig{}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		err = fmt.Errorf("不支持的配置文件格式: %s", path)
	}
	if err != nil {
		return cfg, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
