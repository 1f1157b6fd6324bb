//go:build blackbox

package blackbox

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func contains(s, sub string) bool { return strings.Contains(s, sub) }

func f64(x float64) string {
	// two decimals, like TWSE quotes
	return fmt.Sprintf("%.2f", x)
}

// writeWave writes n daily bars of a sine wave as CSV and returns the path.
func writeWave(t *testing.T, dir string, n int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("time,open,high,low,close,volume\n")
	t0 := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := 500 + 60*math.Sin(float64(i)/6)
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s,%d\n",
			t0.AddDate(0, 0, i).Format("2006-01-02"), f64(c), f64(c+2), f64(c-2), f64(c), 1_000_000+i)
	}

	path := filepath.Join(dir, "wave.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
