package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hpdav/cityflow-backend-go/internal/database"
	"github.com/hpdav/cityflow-backend-go/internal/models"
)

const tripCoordinatesTable = "trip_coordinates"

// SQLiteStore reads the event logs from a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return models.SourceUnavailable("database", err)
	}
	return nil
}

// Participants returns every participant ordered by id.
func (s *SQLiteStore) Participants(ctx context.Context) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT participantid, age, householdsize, havekids,
		educationlevel, interestgroup, joviality
		FROM participants ORDER BY participantid`)
	if err != nil {
		return nil, models.SourceUnavailable("participants", err)
	}
	defer rows.Close()

	var out []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.Age, &p.HouseholdSize, &p.HaveKids,
			&p.EducationLevel, &p.InterestGroup, &p.Joviality); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Venues returns every venue ordered by type and id.
func (s *SQLiteStore) Venues(ctx context.Context) ([]models.Venue, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT venueid, venuetype, x, y, rentalcost, numberofrooms, maxoccupancy
		FROM venues ORDER BY venuetype, venueid`)
	if err != nil {
		return nil, models.SourceUnavailable("venues", err)
	}
	defer rows.Close()

	var out []models.Venue
	for rows.Next() {
		var v models.Venue
		if err := rows.Scan(&v.ID, &v.Type, &v.X, &v.Y, &v.RentalCost, &v.Rooms, &v.MaxOccupancy); err != nil {
			return nil, fmt.Errorf("failed to scan venue: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Jobs returns every job ordered by id.
func (s *SQLiteStore) Jobs(ctx context.Context) ([]models.Job, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT jobid, employerid FROM jobs ORDER BY jobid")
	if err != nil {
		return nil, models.SourceUnavailable("jobs", err)
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.EmployerID); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// EachSample streams position samples in ingestion order.
func (s *SQLiteStore) EachSample(ctx context.Context, f models.EventFilter, fn func(models.PositionSample) error) error {
	where, args := eventWhere(f, "timestamp", "mode", "participantid")
	query := `SELECT participantid, timestamp, x, y, mode, apartmentid, jobid
		FROM participantstatuslogs` + where + " ORDER BY rowid"

	return s.each(ctx, string(LogSamples), query, args, func(rows *sql.Rows) error {
		sample, err := scanSample(rows)
		if err != nil {
			return err
		}
		return fn(sample)
	})
}

// EachCheckin streams check-ins in ingestion order.
func (s *SQLiteStore) EachCheckin(ctx context.Context, f models.EventFilter, fn func(models.Checkin) error) error {
	where, args := eventWhere(f, "timestamp", "venuetype", "participantid")
	query := "SELECT participantid, timestamp, venueid, venuetype FROM checkinjournal" + where + " ORDER BY rowid"

	return s.each(ctx, string(LogCheckins), query, args, func(rows *sql.Rows) error {
		var c models.Checkin
		var ts int64
		if err := rows.Scan(&c.ParticipantID, &ts, &c.VenueID, &c.VenueType); err != nil {
			return fmt.Errorf("failed to scan checkin: %w", err)
		}
		c.Timestamp = unixTime(ts)
		return fn(c)
	})
}

// EachTrip streams travel-journal entries in ingestion order.
func (s *SQLiteStore) EachTrip(ctx context.Context, f models.EventFilter, fn func(models.Trip) error) error {
	where, args := eventWhere(f, "travelstarttime", "purpose", "participantid")
	query := `SELECT travelid, participantid, travelstarttime, travelendtime, purpose
		FROM traveljournal` + where + " ORDER BY rowid"

	return s.each(ctx, string(LogTrips), query, args, func(rows *sql.Rows) error {
		var t models.Trip
		var start, end int64
		if err := rows.Scan(&t.TravelID, &t.ParticipantID, &start, &end, &t.Purpose); err != nil {
			return fmt.Errorf("failed to scan trip: %w", err)
		}
		t.Start, t.End = unixTime(start), unixTime(end)
		return fn(t)
	})
}

// EachFinancial streams financial events in ingestion order.
func (s *SQLiteStore) EachFinancial(ctx context.Context, f models.EventFilter, fn func(models.FinancialEvent) error) error {
	where, args := eventWhere(f, "timestamp", "category", "participantid")
	query := "SELECT participantid, timestamp, category, amount FROM financialjournal" + where + " ORDER BY rowid"

	return s.each(ctx, string(LogFinancial), query, args, func(rows *sql.Rows) error {
		var ev models.FinancialEvent
		var ts int64
		if err := rows.Scan(&ev.ParticipantID, &ts, &ev.Category, &ev.Amount); err != nil {
			return fmt.Errorf("failed to scan financial event: %w", err)
		}
		ev.Timestamp = unixTime(ts)
		return fn(ev)
	})
}

// EachInteraction streams social-network contacts in ingestion order.
func (s *SQLiteStore) EachInteraction(ctx context.Context, f models.EventFilter, fn func(models.Interaction) error) error {
	where, args := eventWhere(f, "timestamp", "", "participantidfrom")
	query := "SELECT timestamp, participantidfrom, participantidto FROM socialnetwork" + where + " ORDER BY rowid"

	return s.each(ctx, string(LogInteractions), query, args, func(rows *sql.Rows) error {
		var in models.Interaction
		var ts int64
		if err := rows.Scan(&ts, &in.From, &in.To); err != nil {
			return fmt.Errorf("failed to scan interaction: %w", err)
		}
		in.Timestamp = unixTime(ts)
		return fn(in)
	})
}

// SampleCounts returns the number of status-log rows per participant.
func (s *SQLiteStore) SampleCounts(ctx context.Context) (map[int64]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT participantid, COUNT(*) FROM participantstatuslogs GROUP BY participantid")
	if err != nil {
		return nil, models.SourceUnavailable(string(LogSamples), err)
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var id, n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan sample count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// Timeline returns one participant's samples in ingestion order.
func (s *SQLiteStore) Timeline(ctx context.Context, participantID int64) ([]models.PositionSample, error) {
	var out []models.PositionSample
	err := s.EachSample(ctx, models.EventFilter{Participants: []int64{participantID}}, func(ps models.PositionSample) error {
		out = append(out, ps)
		return nil
	})
	return out, err
}

// Span returns the first and last day of log.
func (s *SQLiteStore) Span(ctx context.Context, log EventLog) (*models.DateSpan, error) {
	col := "timestamp"
	if log == LogTrips {
		col = "travelstarttime"
	}
	query := fmt.Sprintf("SELECT MIN(%s), MAX(%s) FROM %s", col, col, log)

	var first, last sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query).Scan(&first, &last); err != nil {
		return nil, models.SourceUnavailable(string(log), err)
	}
	return spanOf(first.Int64, last.Int64, first.Valid), nil
}

// HasTripCoordinates reports whether the precomputed trip table exists.
func (s *SQLiteStore) HasTripCoordinates(ctx context.Context) (bool, error) {
	ok, err := database.TableExists(ctx, s.db, tripCoordinatesTable)
	if err != nil {
		return false, models.SourceUnavailable(tripCoordinatesTable, err)
	}
	return ok, nil
}

// EachTripCoordinate streams the precomputed trips. Rows with a NULL
// endpoint are reported with Resolved=false.
func (s *SQLiteStore) EachTripCoordinate(ctx context.Context, f models.EventFilter, fn func(models.TripCoordinate) error) error {
	ok, err := s.HasTripCoordinates(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoTripCoordinates
	}

	where, args := eventWhere(f, "start_time", "purpose", "participantid")
	query := `SELECT travelid, participantid, start_time, end_time, purpose, start_x, start_y, end_x, end_y
		FROM trip_coordinates` + where + " ORDER BY travelid"

	return s.each(ctx, tripCoordinatesTable, query, args, func(rows *sql.Rows) error {
		var tc models.TripCoordinate
		var start, end int64
		var sx, sy, ex, ey sql.NullFloat64
		if err := rows.Scan(&tc.TravelID, &tc.ParticipantID, &start, &end, &tc.Purpose, &sx, &sy, &ex, &ey); err != nil {
			return fmt.Errorf("failed to scan trip coordinate: %w", err)
		}
		tc.Start, tc.End = unixTime(start), unixTime(end)
		tc.Resolved = sx.Valid && sy.Valid && ex.Valid && ey.Valid
		if tc.Resolved {
			tc.Origin.X, tc.Origin.Y = sx.Float64, sy.Float64
			tc.Destination.X, tc.Destination.Y = ex.Float64, ey.Float64
		}
		return fn(tc)
	})
}

// WriteTripCoordinates replaces the precomputed trip table with rows.
func (s *SQLiteStore) WriteTripCoordinates(ctx context.Context, rows []models.TripCoordinate) error {
	return database.Transaction(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS trip_coordinates (
			travelid      INTEGER PRIMARY KEY,
			participantid INTEGER NOT NULL,
			start_time    INTEGER NOT NULL,
			end_time      INTEGER NOT NULL,
			purpose       TEXT    NOT NULL DEFAULT '',
			start_x       REAL,
			start_y       REAL,
			end_x         REAL,
			end_y         REAL
		)`); err != nil {
			return fmt.Errorf("failed to create trip_coordinates: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM trip_coordinates"); err != nil {
			return fmt.Errorf("failed to clear trip_coordinates: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO trip_coordinates
			(travelid, participantid, start_time, end_time, purpose, start_x, start_y, end_x, end_y)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare trip_coordinates insert: %w", err)
		}
		defer stmt.Close()

		for _, tc := range rows {
			var sx, sy, ex, ey interface{}
			if tc.Resolved {
				sx, sy = tc.Origin.X, tc.Origin.Y
				ex, ey = tc.Destination.X, tc.Destination.Y
			}
			if _, err := stmt.ExecContext(ctx, tc.TravelID, tc.ParticipantID,
				tc.Start.Unix(), tc.End.Unix(), tc.Purpose, sx, sy, ex, ey); err != nil {
				return fmt.Errorf("failed to insert trip %d: %w", tc.TravelID, err)
			}
		}
		return nil
	})
}

// each runs query and hands every row to scan.
func (s *SQLiteStore) each(ctx context.Context, what, query string, args []interface{}, scan func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return models.SourceUnavailable(what, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return models.SourceUnavailable(what, err)
	}
	return nil
}

// eventWhere pushes f down as a WHERE clause. An empty categoryCol skips
// the category predicate.
func eventWhere(f models.EventFilter, timeCol, categoryCol, participantCol string) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if !f.Range.From.IsZero() {
		conditions = append(conditions, timeCol+" >= ?")
		args = append(args, f.Range.From.Unix())
	}
	if !f.Range.To.IsZero() {
		conditions = append(conditions, timeCol+" < ?")
		args = append(args, f.Range.To.Unix())
	}
	if categoryCol != "" && len(f.Categories) > 0 {
		conditions = append(conditions, categoryCol+" IN ("+placeholders(len(f.Categories))+")")
		for _, c := range f.Categories {
			args = append(args, c)
		}
	}
	if len(f.Participants) > 0 {
		conditions = append(conditions, participantCol+" IN ("+placeholders(len(f.Participants))+")")
		for _, id := range f.Participants {
			args = append(args, id)
		}
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func scanSample(rows *sql.Rows) (models.PositionSample, error) {
	var ps models.PositionSample
	var ts int64
	var apartment, job sql.NullInt64
	if err := rows.Scan(&ps.ParticipantID, &ts, &ps.X, &ps.Y, &ps.Mode, &apartment, &job); err != nil {
		return ps, fmt.Errorf("failed to scan position sample: %w", err)
	}
	ps.Timestamp = unixTime(ts)
	if apartment.Valid {
		id := apartment.Int64
		ps.ApartmentID = &id
	}
	if job.Valid {
		id := job.Int64
		ps.JobID = &id
	}
	return ps, nil
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
