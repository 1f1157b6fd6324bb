package market

import (
	"testing"

	"github.com/markcheno/go-quote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromQuote(t *testing.T) {
	t.Parallel()

	q := quote.NewQuote("2330.TW", 3)
	for i := 0; i < 3; i++ {
		q.Date[i] = day(3 - i)
		q.Open[i] = 100
		q.High[i] = 101
		q.Low[i] = 99
		q.Close[i] = float64(100 + i)
		q.Volume[i] = 1000
	}
	// zero close row is dropped
	q.Close[1] = 0

	bars := FromQuote(q)
	require.Len(t, bars, 2)
	assert.Equal(t, day(1), bars[0].Time)
	assert.Equal(t, 102.0, bars[0].Close)
	assert.Equal(t, day(3), bars[1].Time)
	assert.NoError(t, ValidateSeries(bars))
}
