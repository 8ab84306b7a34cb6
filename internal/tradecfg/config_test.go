package tradecfg

import (
	"os"
	"path/filepath"
	"testing"
)

// TestConfigDefaults 测试配置默认值
func TestConfigDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.FromToken != DefaultFromToken {
		t.Errorf("FromToken 默认值应该为 %s，实际为 %s", DefaultFromToken, cfg.FromToken)
	}
	if cfg.ToToken != DefaultToToken {
		t.Errorf("ToToken 默认值应该为 %s，实际为 %s", DefaultToToken, cfg.ToToken)
	}
	if cfg.ContractAddress != DefaultContractAddress {
		t.Errorf("ContractAddress 默认值应该为 %s，实际为 %s", DefaultContractAddress, cfg.ContractAddress)
	}
	if cfg.FromChainID != DefaultChainID || cfg.ToChainID != DefaultChainID {
		t.Errorf("链 ID 默认值应该为 %s，实际为 %s/%s", DefaultChainID, cfg.FromChainID, cfg.ToChainID)
	}
	if cfg.MinAmount != DefaultMinAmount || cfg.MaxAmount != DefaultMaxAmount {
		t.Errorf("金额默认值应该为 [%.2f, %.2f]，实际为 [%.2f, %.2f]",
			DefaultMinAmount, DefaultMaxAmount, cfg.MinAmount, cfg.MaxAmount)
	}
	if cfg.TargetVolume != DefaultTargetVolume {
		t.Errorf("TargetVolume 默认值应该为 %.2f，实际为 %.2f", DefaultTargetVolume, cfg.TargetVolume)
	}
	if cfg.CycleIntervalSec != DefaultCycleIntervalSec {
		t.Errorf("CycleIntervalSec 默认值应该为 %.0f，实际为 %.0f", DefaultCycleIntervalSec, cfg.CycleIntervalSec)
	}
	if cfg.RetryDelaySec != DefaultRetryDelaySec {
		t.Errorf("RetryDelaySec 默认值应该为 %.0f，实际为 %.0f", DefaultRetryDelaySec, cfg.RetryDelaySec)
	}
	if cfg.MaxCycles != 0 {
		t.Errorf("MaxCycles 默认应该为 0（不限制），实际为 %d", cfg.MaxCycles)
	}
	if cfg.FillTimeoutSec != 0 {
		t.Errorf("FillTimeoutSec 默认应该为 0（不做成交确认），实际为 %.0f", cfg.FillTimeoutSec)
	}
	if cfg.CustomSlippage != DefaultCustomSlippage {
		t.Errorf("CustomSlippage 默认值应该为 %s，实际为 %s", DefaultCustomSlippage, cfg.CustomSlippage)
	}
}

// TestApplyDefaultsKeepsExplicitValues 测试已有值不被默认值覆盖
func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := TradeConfig{
		FromToken:    "BUSD",
		MinAmount:    5,
		MaxAmount:    20,
		TargetVolume: 500,
	}
	cfg.ApplyDefaults()

	if cfg.FromToken != "BUSD" {
		t.Errorf("显式设置的 FromToken 被覆盖: %s", cfg.FromToken)
	}
	if cfg.MinAmount != 5 || cfg.MaxAmount != 20 {
		t.Errorf("显式设置的金额被覆盖: [%.2f, %.2f]", cfg.MinAmount, cfg.MaxAmount)
	}
	if cfg.TargetVolume != 500 {
		t.Errorf("显式设置的 TargetVolume 被覆盖: %.2f", cfg.TargetVolume)
	}
	if cfg.ToToken != DefaultToToken {
		t.Errorf("未设置的 ToToken 应该补默认值，实际为 %s", cfg.ToToken)
	}
}

// TestConfigValidation 测试配置验证
func TestConfigValidation(t *testing.T) {
	valid := Defaults()
	if err := valid.Validate(); err != nil {
		t.Errorf("有效配置验证失败: %v", err)
	}

	minGtMax := Defaults()
	minGtMax.MinAmount = 50
	minGtMax.MaxAmount = 20
	if err := minGtMax.Validate(); err == nil {
		t.Error("MinAmount > MaxAmount 应该验证失败")
	}

	negAmount := Defaults()
	negAmount.MinAmount = -1
	if err := negAmount.Validate(); err == nil {
		t.Error("MinAmount < 0 应该验证失败")
	}

	negTarget := Defaults()
	negTarget.TargetVolume = -100
	if err := negTarget.Validate(); err == nil {
		t.Error("TargetVolume < 0 应该验证失败")
	}

	negCycles := Defaults()
	negCycles.MaxCycles = -1
	if err := negCycles.Validate(); err == nil {
		t.Error("MaxCycles < 0 应该验证失败")
	}

	emptyToken := Defaults()
	emptyToken.FromToken = ""
	if err := emptyToken.Validate(); err == nil {
		t.Error("FromToken 为空应该验证失败")
	}
}

// TestLoadFileYAML 测试从 YAML 文件加载配置
func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade.yaml")
	content := `
fromToken: USDT
toToken: B2
minAmount: 15
maxAmount: 30
targetVolume: 2048
maxCycles: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("加载 YAML 配置失败: %v", err)
	}
	if cfg.ToToken != "B2" {
		t.Errorf("ToToken 应该为 B2，实际为 %s", cfg.ToToken)
	}
	if cfg.MinAmount != 15 || cfg.MaxAmount != 30 {
		t.Errorf("金额范围应该为 [15, 30]，实际为 [%.2f, %.2f]", cfg.MinAmount, cfg.MaxAmount)
	}
	if cfg.MaxCycles != 5 {
		t.Errorf("MaxCycles 应该为 5，实际为 %d", cfg.MaxCycles)
	}
	// 未设置的字段补默认值
	if cfg.ContractAddress != DefaultContractAddress {
		t.Errorf("未设置的 ContractAddress 应该为默认值，实际为 %s", cfg.ContractAddress)
	}
}

// TestLoadFileJSON 测试从 JSON 文件加载配置
func TestLoadFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade.json")
	content := `{"fromToken": "USDT", "toToken": "KOGE", "minAmount": 8, "maxAmount": 12}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入测试文件失败: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("加载 JSON 配置失败: %v", err)
	}
	if cfg.MinAmount != 8 || cfg.MaxAmount != 12 {
		t.Errorf("金额范围应该为 [8, 12]，实际为 [%.2f, %.2f]", cfg.MinAmount, cfg.MaxAmount)
	}
}

// TestLoadFileRejectsInvalid 测试非法配置文件
func TestLoadFileRejectsInvalid(t *testing.T) {
	// 不支持的扩展名
	badExt := filepath.Join(t.TempDir(), "trade.toml")
	if err := os.WriteFile(badExt, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(badExt); err == nil {
		t.Error("不支持的文件格式应该报错")
	}

	// 校验不通过
	invalid := filepath.Join(t.TempDir(), "trade.json")
	if err := os.WriteFile(invalid, []byte(`{"minAmount": 100, "maxAmount": 10}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(invalid); err == nil {
		t.Error("minAmount > maxAmount 的配置文件应该报错")
	}

	// 文件不存在
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("缺失的配置文件应该报错")
	}
}
