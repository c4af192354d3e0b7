package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// MarketClient reads public coin prices from a CoinGecko-compatible API. It never sends
// the platform credential.
type MarketClient struct {
	HTTPClient *http.Client
	BaseURL    string
}

func NewMarketClient(baseURL string, timeout time.Duration) *MarketClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &MarketClient{
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type CoinPrice struct {
	Symbol           string
	USD              float64
	ChangePercent24h float64
}

type MarketTrend struct {
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	Price            float64 `json:"current_price"`
	Change24h        float64 `json:"price_change_24h"`
	ChangePercent24h float64 `json:"price_change_percentage_24h"`
	Volume24h        float64 `json:"total_volume"`
	MarketCap        float64 `json:"market_cap"`
}

var symbolToCoinID = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"USDT":  "tether",
	"BNB":   "binancecoin",
	"SOL":   "solana",
	"XRP":   "ripple",
	"DOGE":  "dogecoin",
	"ADA":   "cardano",
	"TRX":   "tron",
	"LTC":   "litecoin",
	"DOT":   "polkadot",
	"LINK":  "chainlink",
	"MATIC": "matic-network",
	"AVAX":  "avalanche-2",
}

// CoinID maps a ticker to the market data id.
func CoinID(symbol string) (string, bool) {
	id, ok := symbolToCoinID[strings.ToUpper(symbol)]
	return id, ok
}

func coinIDs(symbols []string) (ids []string, bySymbol map[string]string) {
	bySymbol = make(map[string]string)
	for _, symbol := range symbols {
		symbol = strings.ToUpper(symbol)
		if id, ok := symbolToCoinID[symbol]; ok {
			if _, seen := bySymbol[symbol]; !seen {
				ids = append(ids, id)
			}
			bySymbol[symbol] = id
		}
	}
	sort.Strings(ids)
	return ids, bySymbol
}

// GetPrices returns USD prices keyed by ticker.
func (m *MarketClient) GetPrices(ctx context.Context, symbols []string) (map[string]CoinPrice, error) {
	ids, bySymbol := coinIDs(symbols)
	if len(ids) == 0 {
		return nil, fmt.Errorf("no known symbols in %v", symbols)
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", "usd")
	query.Set("include_24hr_change", "true")

	var geckoResponse map[string]map[string]float64
	if err := m.get(ctx, "/simple/price", query, &geckoResponse); err != nil {
		return nil, err
	}

	prices := make(map[string]CoinPrice, len(bySymbol))
	for symbol, id := range bySymbol {
		priceData, exists := geckoResponse[id]
		if !exists {
			continue
		}
		if price, ok := priceData["usd"]; ok && price > 0 {
			prices[symbol] = CoinPrice{
				Symbol:           symbol,
				USD:              price,
				ChangePercent24h: priceData["usd_24h_change"],
			}
		}
	}
	return prices, nil
}

// GetTrends returns market rows ordered by market cap.
func (m *MarketClient) GetTrends(ctx context.Context, symbols []string) ([]MarketTrend, error) {
	ids, _ := coinIDs(symbols)
	if len(ids) == 0 {
		return nil, fmt.Errorf("no known symbols in %v", symbols)
	}

	query := url.Values{}
	query.Set("vs_currency", "usd")
	query.Set("ids", strings.Join(ids, ","))
	query.Set("order", "market_cap_desc")
	query.Set("per_page", "50")
	query.Set("page", "1")
	query.Set("sparkline", "false")
	query.Set("price_change_percentage", "24h")

	var trends []MarketTrend
	if err := m.get(ctx, "/coins/markets", query, &trends); err != nil {
		return nil, err
	}

	out := trends[:0]
	for _, t := range trends {
		if t.Price <= 0 {
			continue
		}
		t.Symbol = strings.ToUpper(t.Symbol)
		out = append(out, t)
	}
	return out, nil
}

func (m *MarketClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	fullURL := m.BaseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return &TransportError{Method: http.MethodGet, Path: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: http.MethodGet, Path: path, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &UnknownError{Status: resp.StatusCode, Body: truncate(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &UnknownError{Status: resp.StatusCode, Body: truncate(string(body)), Err: err}
	}
	return nil
}
