package market

import "encoding/json"

// 交易所私有接口路径（web 端抓包所得）
const (
	quoteEndpoint       = "/bapi/defi/v1/private/wallet-direct/swap/cex/get-quote"
	buyEndpoint         = "/bapi/defi/v2/private/wallet-direct/swap/cex/buy/pre/payment"
	sellEndpoint        = "/bapi/defi/v2/private/wallet-direct/swap/cex/sell/pre/payment"
	balanceEndpoint     = "/bapi/asset/v2/private/asset-service/wallet/balance"
	orderStatusEndpoint = "/bapi/defi/v1/private/wallet-direct/swap/cex/query-order"
)

// envelope 所有私有接口的统一响应包装
type envelope struct {
	Code    any             `json:"code"`
	Message string          `json:"message"`
	Msg     string          `json:"msg"`
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// Direction 报价方向
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// QuoteRequest 报价请求参数
type QuoteRequest struct {
	Direction       Direction
	FromToken       string
	ToToken         string
	FromChainID     string
	ToChainID       string
	ContractAddress string // 目标代币合约地址
	Amount          string // fromCoinAmount，十进制字符串
	Slippage        string
}

// Quote 报价单。下单时原样回传报价字段，金额类字段的类型以服务端为准，
// 解析统一走 asDecimal。
type Quote struct {
	TraceID         string          `json:"traceId,omitempty"`
	ClientTraceID   string          `json:"clientTraceId,omitempty"`
	QuoteID         string          `json:"quoteId,omitempty"`
	OrderID         string          `json:"orderId,omitempty"`
	BizID           string          `json:"bizId,omitempty"`
	MatchBizNo      string          `json:"matchBizNo,omitempty"`
	MatchBizType    string          `json:"matchBizType,omitempty"`
	TradeType       string          `json:"tradeType,omitempty"`
	TradeBase       string          `json:"tradeBase,omitempty"`
	TradeQuote      string          `json:"tradeQuote,omitempty"`
	OrderType       string          `json:"orderType,omitempty"`
	SerialNo        string          `json:"serialNo,omitempty"`
	UniQuoteID      string          `json:"uniQuoteId,omitempty"`
	QuoteTime       any             `json:"quoteTime,omitempty"`
	QuoteExpireTime any             `json:"quoteExpireTime,omitempty"`
	Price           any             `json:"price,omitempty"`
	PayMethod       string          `json:"payMethod,omitempty"`
	FromCoinAmount  any             `json:"fromCoinAmount,omitempty"`
	ToCoinAmount    any             `json:"toCoinAmount,omitempty"`
	Extra           json.RawMessage `json:"extra,omitempty"`
}

// ExecResult 买入/卖出执行结果。失败不抛错，只带原因。
type ExecResult struct {
	OK      bool
	Amount  float64 // 买入时为获得的目标币数量，卖出时为回收的计价币金额
	Reason  string
	TraceID string
}

// OrderStatus 订单状态查询结果
type OrderStatus struct {
	OrderStatus        string `json:"orderStatus"`
	Status             string `json:"status"`
	PendingOrderStatus string `json:"pendingOrderStatus"`
}

// 订单终态集合（原脚本 wait_for_fill 的状态表）
var (
	fillSuccessStates = map[string]bool{
		"FILLED": true, "FINISHED": true, "SUCCESS": true,
		"COMPLETED": true, "EXECUTED": true, "TRIGGERED": true,
	}
	fillFailureStates = map[string]bool{
		"REJECTED": true, "CANCELLED": true, "FAILED": true,
		"EXPIRED": true, "TERMINATED": true,
	}
)

// Filled 是否成功终态
func (s *OrderStatus) Filled() bool {
	st := s.effectiveStatus()
	if !fillSuccessStates[st] {
		return false
	}
	return s.PendingOrderStatus == "" || fillSuccessStates[s.PendingOrderStatus]
}

// Failed 是否失败终态
func (s *OrderStatus) Failed() bool {
	if fillFailureStates[s.effectiveStatus()] {
		return true
	}
	return s.PendingOrderStatus != "" && fillFailureStates[s.PendingOrderStatus]
}

func (s *OrderStatus) effectiveStatus() string {
	if s.OrderStatus != "" {
		return s.OrderStatus
	}
	return s.Status
}

// balanceAccount 钱包余额接口返回的账户条目
type balanceAccount struct {
	AccountType   string         `json:"accountType"`
	AssetBalances []assetBalance `json:"assetBalances"`
}

type assetBalance struct {
	Asset            string `json:"asset"`
	Coin             string `json:"coin"`
	Free             any    `json:"free"`
	AvailableBalance any    `json:"availableBalance"`
	Total            any    `json:"total"`
}

func (a *assetBalance) symbol() string {
	if a.Asset != "" {
		return a.Asset
	}
	return a.Coin
}
