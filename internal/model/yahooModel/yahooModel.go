package yahooModel

// Raw payloads of the Yahoo Finance quote endpoints. Numeric fields are
// pointers: the provider omits them for symbols it has no data for.

type RawBulkQuotes struct {
	QuoteResponse struct {
		Result []RawQuote `json:"result"`
		Error  any        `json:"error"`
	} `json:"quoteResponse"`
}

type RawQuote struct {
	Symbol                     string   `json:"symbol"`
	RegularMarketPrice         *float64 `json:"regularMarketPrice"`
	RegularMarketChangePercent *float64 `json:"regularMarketChangePercent"`
	RegularMarketPreviousClose *float64 `json:"regularMarketPreviousClose"`
}

type RawChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string   `json:"symbol"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				ChartPreviousClose *float64 `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}
