package analysis

import (
	"testing"
	"time"

	"github.com/hpdav/cityflow-backend-go/internal/spatial"
	"github.com/stretchr/testify/require"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func timeMinutes(n int64) time.Duration { return time.Duration(n) * time.Minute }

func mustGrid(t *testing.T, size float64) spatial.GridIndex {
	t.Helper()
	g, err := spatial.NewGridIndex(size)
	require.NoError(t, err)
	return g
}
