package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// TWSEListingURL lists every security on the Taiwan Stock Exchange.
const TWSEListingURL = "https://isin.twse.com.tw/isin/C_public.jsp?strMode=2"

// FetchTWSETickers downloads the TWSE ISIN listing and returns the four digit
// equity codes with the ".TW" suffix Yahoo expects.
func FetchTWSETickers(ctx context.Context, client *http.Client, url string) ([]string, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("tickers: new request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tickers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tickers: unexpected status %s", resp.Status)
	}

	// The listing is served as Big5.
	return ParseTWSEListing(transform.NewReader(resp.Body, traditionalchinese.Big5.NewDecoder()))
}

// ParseTWSEListing extracts tickers from the (already decoded) listing page.
// The first cell of each data row holds the code and name separated by an
// ideographic space.
func ParseTWSEListing(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("tickers: parse: %w", err)
	}

	var out []string
	seen := map[string]bool{}
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cell := strings.TrimSpace(row.Find("td").First().Text())
		code, _, ok := strings.Cut(cell, "　")
		if !ok {
			return
		}
		code = strings.TrimSpace(code)
		if !isEquityCode(code) || seen[code] {
			return
		}
		seen[code] = true
		out = append(out, code+".TW")
	})

	if len(out) == 0 {
		return nil, fmt.Errorf("tickers: no equity codes found")
	}
	return out, nil
}

func isEquityCode(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FallbackTickers is the universe used when the listing cannot be fetched.
func FallbackTickers() []string {
	out := make([]string, 0, 100)
	for i := 1101; i <= 1200; i++ {
		out = append(out, fmt.Sprintf("%04d.TW", i))
	}
	return out
}

// Tickers fetches the listing and falls back to FallbackTickers on any error.
func Tickers(ctx context.Context, client *http.Client, url string) []string {
	tickers, err := FetchTWSETickers(ctx, client, url)
	if err != nil {
		logrus.WithError(err).Warn("ticker listing unavailable, using fallback universe")
		return FallbackTickers()
	}
	return tickers
}
