package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/traditionalchinese"
)

const listingHTML = `<html><body><table>
<tr><td>有價證券代號及名稱</td><td>國際證券辨識號碼</td></tr>
<tr><td colspan="2">股票</td></tr>
<tr><td>1101　台泥</td><td>TW0001101004</td></tr>
<tr><td>1102　亞泥</td><td>TW0001102002</td></tr>
<tr><td>1101　台泥</td><td>TW0001101004</td></tr>
<tr><td>01001T　土銀富邦R1</td><td>TW00001001T9</td></tr>
<tr><td>2330　台積電</td><td>TW0002330008</td></tr>
</table></body></html>`

func TestParseTWSEListing(t *testing.T) {
	t.Parallel()

	got, err := ParseTWSEListing(strings.NewReader(listingHTML))
	require.NoError(t, err)
	assert.Equal(t, []string{"1101.TW", "1102.TW", "2330.TW"}, got)

	_, err = ParseTWSEListing(strings.NewReader("<html></html>"))
	assert.Error(t, err)
}

func TestFetchTWSETickersDecodesBig5(t *testing.T) {
	t.Parallel()

	body, err := traditionalchinese.Big5.NewEncoder().String(listingHTML)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	got, err := FetchTWSETickers(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"1101.TW", "1102.TW", "2330.TW"}, got)
}

func TestTickersFallsBack(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	got := Tickers(context.Background(), srv.Client(), srv.URL)
	require.Len(t, got, 100)
	assert.Equal(t, "1101.TW", got[0])
	assert.Equal(t, "1200.TW", got[99])
}
