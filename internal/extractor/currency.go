package extractor

import (
	"strings"

	"claimintake/internal/domain"
)

// DefaultCurrencies is used when the policy service does not provide a list.
func DefaultCurrencies() []domain.Currency {
	return []domain.Currency{
		{Code: "SGD", Name: "Singapore Dollar", Symbol: "S$"},
		{Code: "USD", Name: "US Dollar", Symbol: "US$"},
		{Code: "MYR", Name: "Malaysian Ringgit", Symbol: "RM"},
		{Code: "IDR", Name: "Indonesian Rupiah", Symbol: "Rp"},
		{Code: "THB", Name: "Thai Baht", Symbol: "฿"},
		{Code: "PHP", Name: "Philippine Peso", Symbol: "₱"},
		{Code: "VND", Name: "Vietnamese Dong", Symbol: "₫"},
		{Code: "HKD", Name: "Hong Kong Dollar", Symbol: "HK$"},
		{Code: "AUD", Name: "Australian Dollar", Symbol: "A$"},
		{Code: "EUR", Name: "Euro", Symbol: "€"},
		{Code: "GBP", Name: "British Pound", Symbol: "£"},
		{Code: "INR", Name: "Indian Rupee", Symbol: "₹"},
		{Code: "JPY", Name: "Japanese Yen", Symbol: "¥"},
		{Code: "CNY", Name: "Chinese Yuan", Symbol: "¥"},
	}
}

// CurrencyCatalog resolves a currency as written on a receipt (code, name or
// an unambiguous symbol) to a complete currency block.
type CurrencyCatalog struct {
	byCode   map[string]domain.Currency
	byName   map[string]domain.Currency
	bySymbol map[string][]domain.Currency
}

// NewCurrencyCatalog indexes currencies. Entries missing any of code, name or
// symbol are skipped. Later entries override earlier ones with the same code.
func NewCurrencyCatalog(lists ...[]domain.Currency) *CurrencyCatalog {
	c := &CurrencyCatalog{
		byCode:   make(map[string]domain.Currency),
		byName:   make(map[string]domain.Currency),
		bySymbol: make(map[string][]domain.Currency),
	}
	for _, list := range lists {
		for _, cur := range list {
			if cur.Code == "" || cur.Name == "" || cur.Symbol == "" {
				continue
			}
			c.byCode[strings.ToUpper(cur.Code)] = cur
		}
	}
	for _, cur := range c.byCode {
		c.byName[strings.ToLower(cur.Name)] = cur
		c.bySymbol[cur.Symbol] = append(c.bySymbol[cur.Symbol], cur)
	}
	return c
}

// Lookup returns the currency for raw, or false when unknown or ambiguous.
func (c *CurrencyCatalog) Lookup(raw string) (domain.Currency, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Currency{}, false
	}
	if cur, ok := c.byCode[strings.ToUpper(raw)]; ok {
		return cur, true
	}
	if cur, ok := c.byName[strings.ToLower(raw)]; ok {
		return cur, true
	}
	if matches := c.bySymbol[raw]; len(matches) == 1 {
		return matches[0], true
	}
	return domain.Currency{}, false
}

// Len returns the number of currencies.
func (c *CurrencyCatalog) Len() int { return len(c.byCode) }
