package repository

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpdav/cityflow-backend-go/internal/database"
	"github.com/hpdav/cityflow-backend-go/internal/models"
)

func loadFixture(t *testing.T) *Fixture {
	t.Helper()
	fx, err := LoadFixture(filepath.Join("testdata", "fixture.yaml"))
	require.NoError(t, err)
	return fx
}

func seededSQLite(t *testing.T, fx *Fixture) *SQLiteStore {
	t.Helper()
	ctx := context.Background()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := database.Open(ctx, database.Config{Path: filepath.Join(t.TempDir(), "city.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrationManager(db, logger).RunMigrations(ctx))
	require.NoError(t, Seed(ctx, db, fx))
	return NewSQLiteStore(db)
}

// stores returns both implementations over the same fixture.
func stores(t *testing.T) map[string]Store {
	fx := loadFixture(t)
	return map[string]Store{
		"memory": NewMemoryStore(fx),
		"sqlite": seededSQLite(t, fx),
	}
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLoadFixture(t *testing.T) {
	fx := loadFixture(t)
	assert.Len(t, fx.Participants, 3)
	assert.Len(t, fx.Venues, 6)
	assert.Len(t, fx.Trips, 6)
	require.NotNil(t, fx.Samples[0].ApartmentID)
	assert.EqualValues(t, 1, *fx.Samples[0].ApartmentID)
	assert.Nil(t, fx.Samples[0].JobID)
	assert.Equal(t, ts("2022-03-01T07:00:00Z"), fx.Samples[0].Timestamp)
	assert.Equal(t, models.PurposeRecreation, fx.Trips[4].Purpose)
}

const offsetFixture = `
participants:
  - {id: 1, age: 30, household_size: 1, education: Bachelors, interest_group: A, joviality: 0.5}
venues:
  - {id: 30, type: Pub, x: 1400, y: 1300}
checkins:
  - {participant: 1, timestamp: "2022-03-04T22:00:00-05:00", venue: 30, venue_type: Pub}
trips:
  - {id: 1, participant: 1, start: "2022-03-04T21:30:00-05:00", end: "2022-03-04T21:50:00-05:00", purpose: Recreation (Social Gathering)}
`

func TestStoresAgreeOnOffsetTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(offsetFixture), 0o644))
	fx, err := LoadFixture(path)
	require.NoError(t, err)

	want := ts("2022-03-05T03:00:00Z")
	ctx := context.Background()
	for name, store := range map[string]Store{"memory": NewMemoryStore(fx), "sqlite": seededSQLite(t, fx)} {
		t.Run(name, func(t *testing.T) {
			var got []models.Checkin
			require.NoError(t, store.EachCheckin(ctx, models.EventFilter{}, func(c models.Checkin) error {
				got = append(got, c)
				return nil
			}))
			require.Len(t, got, 1)
			assert.Equal(t, want, got[0].Timestamp)
			assert.Equal(t, time.UTC, got[0].Timestamp.Location())
			assert.True(t, models.DayWeekend.Match(got[0].Timestamp))
			assert.Equal(t, 3, models.Hour(got[0].Timestamp))

			var trips []models.Trip
			require.NoError(t, store.EachTrip(ctx, models.EventFilter{}, func(tr models.Trip) error {
				trips = append(trips, tr)
				return nil
			}))
			require.Len(t, trips, 1)
			assert.Equal(t, ts("2022-03-05T02:30:00Z"), trips[0].Start)
			assert.Equal(t, time.UTC, trips[0].End.Location())
		})
	}
}

func TestLoadFixtureMissing(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestStoresAgree(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Ping(ctx))

			participants, err := store.Participants(ctx)
			require.NoError(t, err)
			require.Len(t, participants, 3)
			assert.True(t, participants[0].HaveKids)
			assert.Equal(t, models.EducationGraduate, participants[0].EducationLevel)

			venues, err := store.Venues(ctx)
			require.NoError(t, err)
			assert.Len(t, venues, 6)

			jobs, err := store.Jobs(ctx)
			require.NoError(t, err)
			assert.Equal(t, []models.Job{{ID: 100, EmployerID: 10}}, jobs)

			counts, err := store.SampleCounts(ctx)
			require.NoError(t, err)
			assert.Equal(t, map[int64]int64{1: 5, 2: 3, 3: 1}, counts)

			tl, err := store.Timeline(ctx, 2)
			require.NoError(t, err)
			require.Len(t, tl, 3)
			require.NotNil(t, tl[0].ApartmentID)
			assert.EqualValues(t, 2, *tl[0].ApartmentID)
			require.NotNil(t, tl[1].JobID)
			assert.EqualValues(t, 100, *tl[1].JobID)

			span, err := store.Span(ctx, LogCheckins)
			require.NoError(t, err)
			assert.Equal(t, &models.DateSpan{Min: "2022-03-01", Max: "2022-03-05"}, span)

			span, err = store.Span(ctx, LogTrips)
			require.NoError(t, err)
			assert.Equal(t, &models.DateSpan{Min: "2022-03-01", Max: "2022-03-02"}, span)
		})
	}
}

func TestEventFilterPushdown(t *testing.T) {
	ctx := context.Background()
	march1 := models.DayRange(ts("2022-03-01T00:00:00Z"))

	tests := []struct {
		name   string
		filter models.EventFilter
		want   int
	}{
		{"all", models.EventFilter{}, 7},
		{"one day", models.EventFilter{Range: march1}, 5},
		{"venue type", models.EventFilter{Categories: []string{models.VenuePub}}, 2},
		{"participant", models.EventFilter{Participants: []int64{2}}, 3},
		{"combined", models.EventFilter{Range: march1, Categories: []string{models.VenueApartment}, Participants: []int64{1, 3}}, 1},
	}
	for name, store := range stores(t) {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				n := 0
				err := store.EachCheckin(ctx, tt.filter, func(c models.Checkin) error {
					assert.True(t, tt.filter.Match(c.ParticipantID, c.Timestamp, c.VenueType))
					n++
					return nil
				})
				require.NoError(t, err)
				assert.Equal(t, tt.want, n)
			})
		}
	}
}

func TestEachStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			n := 0
			err := store.EachTrip(context.Background(), models.EventFilter{}, func(models.Trip) error {
				n++
				return stop
			})
			assert.ErrorIs(t, err, stop)
			assert.Equal(t, 1, n)
		})
	}
}

func TestOtherLogs(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var total float64
			require.NoError(t, store.EachFinancial(ctx, models.EventFilter{Categories: []string{models.CategoryFood}},
				func(ev models.FinancialEvent) error {
					total += ev.Amount
					return nil
				}))
			assert.InDelta(t, -25, total, 1e-9)

			var from []int64
			require.NoError(t, store.EachInteraction(ctx, models.EventFilter{Participants: []int64{2, 3}},
				func(in models.Interaction) error {
					from = append(from, in.From)
					return nil
				}))
			assert.ElementsMatch(t, []int64{2, 3}, from)

			modes := map[string]int{}
			require.NoError(t, store.EachSample(ctx, models.EventFilter{Categories: []string{"AtWork"}},
				func(s models.PositionSample) error {
					modes[s.Mode]++
					return nil
				}))
			assert.Equal(t, map[string]int{"AtWork": 3}, modes)
		})
	}
}

func TestTripCoordinatesRoundTrip(t *testing.T) {
	ctx := context.Background()
	rows := []models.TripCoordinate{
		{
			ResolvedTrip: models.ResolvedTrip{
				Trip:        models.Trip{TravelID: 1, ParticipantID: 1, Start: ts("2022-03-01T07:50:00Z"), End: ts("2022-03-01T08:25:00Z"), Purpose: models.PurposeCommute},
				Origin:      r2.Point{X: 100, Y: 100},
				Destination: r2.Point{X: 1200, Y: 800},
			},
			Resolved: true,
		},
		{
			ResolvedTrip: models.ResolvedTrip{
				Trip: models.Trip{TravelID: 5, ParticipantID: 2, Start: ts("2022-03-01T19:00:00Z"), End: ts("2022-03-01T19:30:00Z"), Purpose: models.PurposeRecreation},
			},
		},
	}

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := store.HasTripCoordinates(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			err = store.EachTripCoordinate(ctx, models.EventFilter{}, func(models.TripCoordinate) error { return nil })
			assert.ErrorIs(t, err, ErrNoTripCoordinates)

			require.NoError(t, store.WriteTripCoordinates(ctx, rows))
			// rewriting replaces rather than appends
			require.NoError(t, store.WriteTripCoordinates(ctx, rows))

			ok, err = store.HasTripCoordinates(ctx)
			require.NoError(t, err)
			assert.True(t, ok)

			var got []models.TripCoordinate
			require.NoError(t, store.EachTripCoordinate(ctx, models.EventFilter{}, func(tc models.TripCoordinate) error {
				got = append(got, tc)
				return nil
			}))
			assert.Equal(t, rows, got)
		})
	}
}

func TestMemoryStoreHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore(loadFixture(t))
	err := store.EachCheckin(ctx, models.EventFilter{}, func(models.Checkin) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
