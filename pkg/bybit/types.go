package bybit

import "encoding/json"

// BybitResponse represents a generic response from Bybit's V5 REST API.
// This structure covers the standard response envelope used across all endpoints.
type BybitResponse struct {
	RetCode    int                    `json:"retCode"`    // 0 means success; non-zero indicates an error code
	RetMsg     string                 `json:"retMsg"`     // Human-readable message describing the result or error
	Result     json.RawMessage        `json:"result"`     // Delay decoding; payload varies per endpoint
	RetExtInfo map[string]interface{} `json:"retExtInfo"` // Optional extra info (e.g. rate limits, error hints)
	Time       int64                  `json:"time"`       // Server timestamp (in milliseconds since epoch)
}

// KlineQuery describes a single window request against the kline endpoint.
type KlineQuery struct {
	Category Category
	Symbol   string
	Interval string
	Start    int64 // epoch ms; 0 leaves the lower bound open
	End      int64 // epoch ms
	Limit    int   // rows per page; <= 0 falls back to DefaultKlineLimit
}

// KlineRow is one decoded row of result.list.
// Numeric cells are kept as the provider sent them; coercion happens later.
type KlineRow struct {
	Start    int64 // Start time of the kline (in milliseconds since epoch)
	Open     string
	High     string
	Low      string
	Close    string
	Volume   string
	Turnover string
}
