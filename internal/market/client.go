package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zhitaogpt/BinanceAlphaTool/internal/auth"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/eventlog"
	sdkhttp "github.com/zhitaogpt/BinanceAlphaTool/pkg/sdk/http"
)

var log = logrus.WithField("module", "market")

// DefaultBaseURL 交易所网关
const DefaultBaseURL = "https://www.binance.com"

// Client 封装四个远程操作：报价、买入、卖出、查余额。
// 所有失败都在这一层吸收：写一条分类后的事件日志，返回空结果/失败标记，
// 不向调用方抛错（协议约定，循环引擎只看布尔结果）。
type Client struct {
	http     *sdkhttp.Client
	provider *auth.Provider
	session  *auth.Session
	events   *eventlog.Log
}

// NewClient 创建客户端
func NewClient(baseURL string, session *auth.Session, events *eventlog.Log) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc := sdkhttp.NewClient(baseURL)
	hc.SetCookies(session.Cookies())
	return &Client{
		http:     hc,
		provider: auth.NewProvider(session),
		session:  session,
		events:   events,
	}
}

// RefreshCookies 会话 cookie 轮换后重新注入 HTTP 层
func (c *Client) RefreshCookies() {
	c.http.SetCookies(c.session.Cookies())
}

// headers 组装每次请求的 header 集。
// csrftoken 每次重新派生（cr00 可能轮换），trace id 每次新生成。
func (c *Client) headers() (map[string]string, error) {
	token, err := c.provider.Credential()
	if err != nil {
		return nil, err
	}
	traceID := uuid.NewString()
	headers := map[string]string{
		"Accept-Language":    "zh,zh-CN;q=0.9,en;q=0.8",
		"Content-Type":       "application/json",
		"clienttype":         "web",
		"csrftoken":          token,
		"x-trace-id":         traceID,
		"x-ui-request-trace": traceID,
	}
	// 会话文件里带的 header 优先（User-Agent、Referer 等）
	for k, v := range c.session.ExtraHeaders() {
		headers[k] = v
	}
	return headers, nil
}

func (c *Client) call(ctx context.Context, method, endpoint string, payload any, params map[string]any) (*envelope, error) {
	headers, err := c.headers()
	if err != nil {
		return nil, err
	}
	var env envelope
	resp, err := c.http.DoRequest(ctx, method, endpoint, &sdkhttp.RequestOptions{
		Headers: headers,
		Data:    payload,
		Params:  params,
	}, &env)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, endpoint)
	}
	if err := sdkhttp.ParseHTTPError(resp, nil); err != nil {
		return nil, err
	}
	log.Debugf("%s %s -> code=%v success=%v", method, endpoint, env.Code, env.Success)
	return &env, nil
}

// ok 服务端业务层是否成功（success 标记 + code 白名单，原脚本同款判定）
func (e *envelope) ok() bool {
	if e.Success != nil && !*e.Success {
		return false
	}
	code := strings.ToUpper(fmt.Sprint(e.Code))
	switch code {
	case "", "<NIL>", "SUCCESS", "000000", "0":
		return true
	}
	return false
}

// errText 服务端返回的失败原因
func (e *envelope) errText() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("code=%v", e.Code)
}

// classify 把传输层错误翻译成事件日志里的失败分类
func classify(err error) string {
	if errors.Is(err, auth.ErrMissingSession) {
		return "鉴权失败: 缺少会话令牌"
	}
	return fmt.Sprintf("网络错误: %v", err)
}

// payload 按方向组装报价请求体
func (r QuoteRequest) payload() map[string]any {
	p := map[string]any{
		"fromToken":            r.FromToken,
		"fromBinanceChainId":   r.FromChainID,
		"fromCoinAmount":       r.Amount,
		"toToken":              r.ToToken,
		"toBinanceChainId":     r.ToChainID,
		"priorityMode":         "priorityOnCustom",
		"customNetworkFeeMode": "priorityOnSuccess",
		"customSlippage":       r.Slippage,
	}
	// 合约地址跟着 Alpha 代币走：买入时在 to 侧，卖出时在 from 侧
	if r.Direction == DirectionSell {
		p["fromContractAddress"] = r.ContractAddress
		p["toContractAddress"] = ""
	} else {
		p["toContractAddress"] = r.ContractAddress
	}
	return p
}

// GetQuote 请求报价，失败返回 nil
func (c *Client) GetQuote(ctx context.Context, req QuoteRequest) *Quote {
	env, err := c.call(ctx, http.MethodPost, quoteEndpoint, req.payload(), nil)
	if err != nil {
		c.events.Warnf("获取%s报价失败，%s", req.Direction, classify(err))
		return nil
	}
	if !env.ok() {
		c.events.Warnf("获取%s报价被拒: %s", req.Direction, env.errText())
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		c.events.Warnf("获取%s报价为空", req.Direction)
		return nil
	}
	var q Quote
	if err := json.Unmarshal(env.Data, &q); err != nil {
		c.events.Warnf("解析%s报价失败: %v", req.Direction, err)
		return nil
	}
	return &q
}

// orderPayload 下单请求体：回传报价字段 + 金额规整 + trace id 补全
func orderPayload(q *Quote) map[string]any {
	payload := map[string]any{}
	if q != nil {
		b, err := json.Marshal(q)
		if err == nil {
			_ = json.Unmarshal(b, &payload)
		}
	}
	if _, ok := payload["payMethod"]; !ok {
		payload["payMethod"] = "FUNDING_AND_SPOT"
	}
	// 金额字段统一转为十进制字符串，避免浮点序列化成科学计数法
	for _, key := range []string{"fromCoinAmount", "toCoinAmount"} {
		if raw, ok := payload[key]; ok {
			if _, isStr := raw.(string); isStr {
				continue
			}
			if d, ok := asDecimal(raw); ok {
				payload[key] = formatDecimal(d)
			} else {
				payload[key] = fmt.Sprint(raw)
			}
		}
	}
	if _, ok := payload["traceId"]; !ok {
		payload["traceId"] = uuid.NewString()
	}
	if _, ok := payload["clientTraceId"]; !ok {
		payload["clientTraceId"] = payload["traceId"]
	}
	return payload
}

// extractTraceID 从下单响应定位订单 trace id（候选键顺序同原脚本）
func extractTraceID(data map[string]any, payload map[string]any) string {
	for _, key := range []string{"traceId", "orderId", "bizId"} {
		if v, ok := data[key]; ok && fmt.Sprint(v) != "" {
			return fmt.Sprint(v)
		}
	}
	if v, ok := payload["traceId"].(string); ok {
		return v
	}
	return ""
}

func (c *Client) execute(ctx context.Context, side string, endpoint string, q *Quote, amountKeys []string) ExecResult {
	payload := orderPayload(q)
	env, err := c.call(ctx, http.MethodPost, endpoint, payload, nil)
	if err != nil {
		reason := classify(err)
		c.events.Errorf("%s下单失败，%s", side, reason)
		return ExecResult{Reason: reason}
	}
	if !env.ok() {
		reason := env.errText()
		c.events.Errorf("%s被交易所拒绝: %s", side, reason)
		return ExecResult{Reason: reason}
	}

	data := map[string]any{}
	if len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &data)
	}

	amount, ok := extractDecimal(data, amountKeys...)
	if !ok {
		// 响应没带成交量时回退到报价预估值
		if q != nil {
			amount, _ = asDecimal(q.ToCoinAmount)
		}
	}
	return ExecResult{
		OK:      true,
		Amount:  amount.InexactFloat64(),
		TraceID: extractTraceID(data, payload),
	}
}

// Buy 按报价执行买入，Amount 为获得的目标币数量
func (c *Client) Buy(ctx context.Context, q *Quote) ExecResult {
	return c.execute(ctx, "买入", buyEndpoint, q, []string{"toCoinAmount", "filledAmount", "receivedAmount"})
}

// Sell 按报价执行卖出，Amount 为回收的计价币金额
func (c *Client) Sell(ctx context.Context, q *Quote) ExecResult {
	return c.execute(ctx, "卖出", sellEndpoint, q, []string{"toCoinAmount", "receivedAmount", "realizedAmount"})
}

// GetBalance 查询指定资产余额，任何失败都返回 0
func (c *Client) GetBalance(ctx context.Context, asset string) float64 {
	symbol := strings.ToUpper(strings.TrimSpace(asset))
	if symbol == "" {
		return 0
	}
	env, err := c.call(ctx, http.MethodGet, balanceEndpoint, nil, map[string]any{
		"quoteAsset":        "BTC",
		"needBalanceDetail": "true",
		"needEuFuture":      "true",
	})
	if err != nil {
		c.events.Warnf("查询%s余额失败，%s", symbol, classify(err))
		return 0
	}
	if !env.ok() {
		c.events.Warnf("查询%s余额被拒: %s", symbol, env.errText())
		return 0
	}

	var accounts []balanceAccount
	if err := json.Unmarshal(env.Data, &accounts); err != nil {
		c.events.Warnf("解析余额响应失败: %v", err)
		return 0
	}

	entry := selectAssetEntry(accounts, symbol)
	if entry == nil {
		log.Debugf("余额响应中没有 %s 资产（共 %d 个账户）", symbol, len(accounts))
		return 0
	}
	balance, ok := extractBalance(entry)
	if !ok {
		c.events.Warnf("余额字段无法解析: %s", symbol)
		return 0
	}
	log.Debugf("%s 当前余额: %.6f", symbol, balance)
	return balance
}

// selectAssetEntry 按账户类型偏好（CARD → MAIN → SPOT → 其余）查找资产条目
func selectAssetEntry(accounts []balanceAccount, symbol string) *assetBalance {
	ordered := make([]*balanceAccount, 0, len(accounts))
	for _, preferred := range []string{"CARD", "MAIN", "SPOT"} {
		for i := range accounts {
			if accounts[i].AccountType == preferred {
				ordered = append(ordered, &accounts[i])
				break
			}
		}
	}
	for i := range accounts {
		seen := false
		for _, a := range ordered {
			if a == &accounts[i] {
				seen = true
				break
			}
		}
		if !seen {
			ordered = append(ordered, &accounts[i])
		}
	}
	for _, account := range ordered {
		for i := range account.AssetBalances {
			if account.AssetBalances[i].symbol() == symbol {
				return &account.AssetBalances[i]
			}
		}
	}
	return nil
}

// extractBalance 余额字段优先级：free → availableBalance → total
func extractBalance(entry *assetBalance) (float64, bool) {
	for _, raw := range []any{entry.Free, entry.AvailableBalance, entry.Total} {
		if d, ok := asDecimal(raw); ok {
			return d.InexactFloat64(), true
		}
	}
	return 0, false
}

// OrderStatus 查询订单状态，失败返回 nil
func (c *Client) OrderStatus(ctx context.Context, traceID string) *OrderStatus {
	if traceID == "" {
		return nil
	}
	env, err := c.call(ctx, http.MethodPost, orderStatusEndpoint, map[string]any{"traceId": traceID}, nil)
	if err != nil {
		c.events.Warnf("查询订单状态失败，%s", classify(err))
		return nil
	}
	if !env.ok() || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	var status OrderStatus
	if err := json.Unmarshal(env.Data, &status); err != nil {
		c.events.Warnf("解析订单状态失败: %v", err)
		return nil
	}
	return &status
}
