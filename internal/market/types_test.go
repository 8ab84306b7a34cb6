package market

import "testing"

// TestOrderStatusTerminalStates 终态表：成功/失败/进行中
func TestOrderStatusTerminalStates(t *testing.T) {
	for _, st := range []string{"FILLED", "FINISHED", "SUCCESS", "COMPLETED", "EXECUTED", "TRIGGERED"} {
		s := &OrderStatus{OrderStatus: st}
		if !s.Filled() || s.Failed() {
			t.Errorf("%s 应该判定为成功终态", st)
		}
	}
	for _, st := range []string{"REJECTED", "CANCELLED", "FAILED", "EXPIRED", "TERMINATED"} {
		s := &OrderStatus{OrderStatus: st}
		if s.Filled() || !s.Failed() {
			t.Errorf("%s 应该判定为失败终态", st)
		}
	}
	for _, st := range []string{"PENDING", "PROCESSING", ""} {
		s := &OrderStatus{OrderStatus: st}
		if s.Filled() || s.Failed() {
			t.Errorf("%s 不应该判定为终态", st)
		}
	}
}

// TestOrderStatusPendingOverride 主状态成功但挂单子状态失败时以失败为准
func TestOrderStatusPendingOverride(t *testing.T) {
	s := &OrderStatus{OrderStatus: "SUCCESS", PendingOrderStatus: "REJECTED"}
	if s.Filled() {
		t.Error("挂单子状态失败时不应该判定为成交")
	}
	if !s.Failed() {
		t.Error("挂单子状态失败时应该判定为失败")
	}

	s = &OrderStatus{OrderStatus: "SUCCESS", PendingOrderStatus: "FILLED"}
	if !s.Filled() {
		t.Error("主状态和挂单子状态都成功时应该判定为成交")
	}
}

// TestOrderStatusFallbackField orderStatus 缺失时退回 status 字段
func TestOrderStatusFallbackField(t *testing.T) {
	s := &OrderStatus{Status: "FILLED"}
	if !s.Filled() {
		t.Error("orderStatus 缺失时应该用 status 字段判定")
	}
}

// TestAsDecimal 金额字段 string/number 两种形态都要能解析
func TestAsDecimal(t *testing.T) {
	if d, ok := asDecimal("123.45"); !ok || d.InexactFloat64() != 123.45 {
		t.Errorf("字符串金额解析失败: %v (ok=%v)", d, ok)
	}
	if d, ok := asDecimal(67.5); !ok || d.InexactFloat64() != 67.5 {
		t.Errorf("浮点金额解析失败: %v (ok=%v)", d, ok)
	}
	if d, ok := asDecimal(15); !ok || d.InexactFloat64() != 15 {
		t.Errorf("整数金额解析失败: %v (ok=%v)", d, ok)
	}
	if _, ok := asDecimal(nil); ok {
		t.Error("nil 不应该解析成功")
	}
	if _, ok := asDecimal(""); ok {
		t.Error("空字符串不应该解析成功")
	}
	if _, ok := asDecimal("not-a-number"); ok {
		t.Error("非法字符串不应该解析成功")
	}
}

// TestExtractDecimal 候选键按顺序取第一个能解析的
func TestExtractDecimal(t *testing.T) {
	m := map[string]any{
		"toCoinAmount":   "",
		"filledAmount":   "88.8",
		"receivedAmount": "99.9",
	}
	d, ok := extractDecimal(m, "toCoinAmount", "filledAmount", "receivedAmount")
	if !ok || d.InexactFloat64() != 88.8 {
		t.Errorf("应该跳过空值取 filledAmount 88.8，实际为 %v (ok=%v)", d, ok)
	}

	if _, ok := extractDecimal(nil, "any"); ok {
		t.Error("nil map 不应该解析成功")
	}
}

// TestFormatAmount 下单金额不能出现科学计数法
func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(15); got != "15" {
		t.Errorf("FormatAmount(15) 应该为 15，实际为 %s", got)
	}
	if got := FormatAmount(0.00001); got != "0.00001" {
		t.Errorf("FormatAmount(0.00001) 不应该出现科学计数法，实际为 %s", got)
	}
}
