package refdata

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/repository"
)

// countingStore counts reference loads and can fail the first N of them.
type countingStore struct {
	repository.Store
	participantCalls atomic.Int64
	countCalls       atomic.Int64
	failFirst        atomic.Int64
}

func (s *countingStore) Participants(ctx context.Context) ([]models.Participant, error) {
	s.participantCalls.Add(1)
	if s.failFirst.Add(-1) >= 0 {
		return nil, models.SourceUnavailable("participants", errors.New("connection refused"))
	}
	return s.Store.Participants(ctx)
}

func (s *countingStore) SampleCounts(ctx context.Context) (map[int64]int64, error) {
	s.countCalls.Add(1)
	return s.Store.SampleCounts(ctx)
}

func newTables(t *testing.T) (*Tables, *countingStore) {
	t.Helper()
	fx, err := repository.LoadFixture(filepath.Join("..", "repository", "testdata", "fixture.yaml"))
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := &countingStore{Store: repository.NewMemoryStore(fx)}
	return New(store, logger), store
}

func TestLazyConcurrentFirstAccess(t *testing.T) {
	var loads atomic.Int64
	release := make(chan struct{})
	l := NewLazy(func(ctx context.Context) (int, error) {
		loads.Add(1)
		<-release
		return 42, nil
	})

	const callers = 32
	var wg sync.WaitGroup
	results := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := l.Get(context.Background())
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, loads.Load())
	assert.True(t, l.Loaded())
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestLazyRetriesAfterFailure(t *testing.T) {
	calls := 0
	l := NewLazy(func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("boom")
		}
		return "ok", nil
	})

	_, err := l.Get(context.Background())
	require.Error(t, err)
	assert.False(t, l.Loaded())

	v, err := l.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	_, _ = l.Get(context.Background())
	assert.Equal(t, 2, calls)
}

func TestParticipantsLoadedOnce(t *testing.T) {
	tables, store := newTables(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ps, err := tables.Participants(ctx)
			assert.NoError(t, err)
			assert.Len(t, ps, 3)
		}()
	}
	wg.Wait()

	_, err := tables.Residents(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, store.participantCalls.Load())
}

func TestFailedLoadIsRetried(t *testing.T) {
	tables, store := newTables(t)
	store.failFirst.Store(1)

	_, err := tables.Participants(context.Background())
	require.ErrorIs(t, err, models.ErrSourceUnavailable)

	ps, err := tables.Participants(context.Background())
	require.NoError(t, err)
	assert.Len(t, ps, 3)
	assert.EqualValues(t, 2, store.participantCalls.Load())
}

func TestPlacesAndResidents(t *testing.T) {
	tables, _ := newTables(t)
	ctx := context.Background()

	places, err := tables.Places(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PlaceLocation{ParticipantID: 1, PlaceID: 1, X: 100, Y: 100}, places.Homes[1])
	assert.Equal(t, models.PlaceLocation{ParticipantID: 2, PlaceID: 2, X: 700, Y: 150}, places.Homes[2])
	assert.Equal(t, models.PlaceLocation{ParticipantID: 1, PlaceID: 10, X: 1200, Y: 800}, places.Works[1])
	_, ok := places.Homes[3]
	assert.False(t, ok, "participant 3 never reports an apartment")

	residents, err := tables.Residents(ctx)
	require.NoError(t, err)
	require.Len(t, residents, 2)
	assert.EqualValues(t, 1, residents[0].Participant.ID)
	assert.EqualValues(t, 2, residents[1].Participant.ID)
}

func TestOutliersPerThreshold(t *testing.T) {
	tables, store := newTables(t)
	ctx := context.Background()

	low, err := tables.Outliers(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, low.IDs())

	high, err := tables.Outliers(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, high.IDs())

	again, err := tables.Outliers(ctx, 2)
	require.NoError(t, err)
	assert.Same(t, low, again)
	assert.EqualValues(t, 1, store.countCalls.Load(), "sample counts are shared across thresholds")
}

func TestDerivedTables(t *testing.T) {
	tables, _ := newTables(t)
	ctx := context.Background()

	index, err := tables.VenueIndex(ctx)
	require.NoError(t, err)
	assert.Len(t, index, 6)
	assert.Equal(t, 1400.0, index[models.VenueKey{ID: 30, Type: models.VenuePub}].X)

	ledgers, err := tables.Ledgers(ctx)
	require.NoError(t, err)
	require.Contains(t, ledgers, int64(1))
	assert.InDelta(t, 3000, ledgers[1].Wage.Float(), 1e-9)
	assert.InDelta(t, 800, ledgers[1].Shelter.Float(), 1e-9)

	purposes, err := tables.Purposes(ctx)
	require.NoError(t, err)
	require.Len(t, purposes, 4)
	assert.Equal(t, models.PurposeCount{Purpose: models.PurposeRecreation, Count: 2}, purposes[0])
	assert.Equal(t, models.PurposeCount{Purpose: models.PurposeCommute, Count: 2}, purposes[1])

	months, err := tables.Months(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.MonthOption{{Year: 2022, Month: 3, Label: "March 2022"}}, months)

	hourly, err := tables.HourlyProfile(ctx)
	require.NoError(t, err)
	var total int64
	for _, h := range hourly {
		total += h.Visits
	}
	assert.EqualValues(t, 7, total)

	span, err := tables.Span(ctx, repository.LogFinancial)
	require.NoError(t, err)
	assert.Equal(t, &models.DateSpan{Min: "2022-03-01", Max: "2022-03-05"}, span)
}

func TestWarm(t *testing.T) {
	tables, _ := newTables(t)
	require.NoError(t, tables.Warm(context.Background()))
	assert.True(t, tables.residents.Loaded())
	assert.True(t, tables.venueIndex.Loaded())
	assert.True(t, tables.months.Loaded())
}
