package bybit

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// ParseKlineList converts the raw result payload of the kline endpoint into rows.
//
// Bybit kline array layout:
//
//	[0] startTime  (ms)
//	[1] openPrice
//	[2] highPrice
//	[3] lowPrice
//	[4] closePrice
//	[5] volume     (base coin)
//	[6] turnover   (quote coin)
//
// Cells may arrive as strings or bare numbers; both are read as text. Missing
// trailing cells become empty strings. Row order is preserved (newest first).
func ParseKlineList(result []byte) ([]KlineRow, error) {
	list := gjson.GetBytes(result, "list")
	if !list.Exists() || list.Type == gjson.Null {
		return nil, nil
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("result.list is %s, want array", list.Type)
	}

	rows := list.Array()
	out := make([]KlineRow, 0, len(rows))
	for i, row := range rows {
		cells := row.Array()
		if len(cells) == 0 {
			return nil, &APIError{Code: CodeMalformedRow, Msg: fmt.Sprintf("kline[%d] is empty", i)}
		}
		start, err := strconv.ParseInt(cells[0].String(), 10, 64)
		if err != nil {
			return nil, &APIError{Code: CodeMalformedRow, Msg: fmt.Sprintf("kline[%d] start time %q", i, cells[0].String())}
		}
		out = append(out, KlineRow{
			Start:    start,
			Open:     cell(cells, 1),
			High:     cell(cells, 2),
			Low:      cell(cells, 3),
			Close:    cell(cells, 4),
			Volume:   cell(cells, 5),
			Turnover: cell(cells, 6),
		})
	}
	return out, nil
}

// ParseSymbolList extracts result.list[].symbol and result.nextPageCursor.
func ParseSymbolList(result []byte) (symbols []string, nextCursor string) {
	parsed := gjson.ParseBytes(result)
	for _, s := range parsed.Get("list.#.symbol").Array() {
		if s.String() != "" {
			symbols = append(symbols, s.String())
		}
	}
	return symbols, parsed.Get("nextPageCursor").String()
}

func cell(cells []gjson.Result, i int) string {
	if i >= len(cells) || cells[i].Type == gjson.Null {
		return ""
	}
	return cells[i].String()
}
