package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hpdav/cityflow-backend-go/internal/database"
	"github.com/hpdav/cityflow-backend-go/internal/models"
)

// Fixture is a complete dataset in YAML form.
type Fixture struct {
	Participants []models.Participant    `yaml:"participants"`
	Venues       []models.Venue          `yaml:"venues"`
	Jobs         []models.Job            `yaml:"jobs"`
	Samples      []models.PositionSample `yaml:"samples"`
	Checkins     []models.Checkin        `yaml:"checkins"`
	Trips        []models.Trip           `yaml:"trips"`
	Financial    []models.FinancialEvent `yaml:"financial"`
	Interactions []models.Interaction    `yaml:"interactions"`
}

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	fx.toUTC()
	return &fx, nil
}

// toUTC normalizes every timestamp so the fixture reads back exactly like
// the SQLite store, which stores unix seconds.
func (fx *Fixture) toUTC() {
	for i := range fx.Samples {
		fx.Samples[i].Timestamp = fx.Samples[i].Timestamp.UTC()
	}
	for i := range fx.Checkins {
		fx.Checkins[i].Timestamp = fx.Checkins[i].Timestamp.UTC()
	}
	for i := range fx.Trips {
		fx.Trips[i].Start = fx.Trips[i].Start.UTC()
		fx.Trips[i].End = fx.Trips[i].End.UTC()
	}
	for i := range fx.Financial {
		fx.Financial[i].Timestamp = fx.Financial[i].Timestamp.UTC()
	}
	for i := range fx.Interactions {
		fx.Interactions[i].Timestamp = fx.Interactions[i].Timestamp.UTC()
	}
}

// Seed inserts every row of fx into db in one transaction. The schema must
// already be migrated.
func Seed(ctx context.Context, db *sql.DB, fx *Fixture) error {
	return database.Transaction(ctx, db, func(tx *sql.Tx) error {
		for _, p := range fx.Participants {
			if _, err := tx.ExecContext(ctx, `INSERT INTO participants
				(participantid, age, householdsize, havekids, educationlevel, interestgroup, joviality)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				p.ID, p.Age, p.HouseholdSize, p.HaveKids, p.EducationLevel, p.InterestGroup, p.Joviality); err != nil {
				return fmt.Errorf("failed to insert participant %d: %w", p.ID, err)
			}
		}
		for _, v := range fx.Venues {
			if _, err := tx.ExecContext(ctx, `INSERT INTO venues
				(venueid, venuetype, x, y, rentalcost, numberofrooms, maxoccupancy)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				v.ID, v.Type, v.X, v.Y, v.RentalCost, v.Rooms, v.MaxOccupancy); err != nil {
				return fmt.Errorf("failed to insert venue %s/%d: %w", v.Type, v.ID, err)
			}
		}
		for _, j := range fx.Jobs {
			if _, err := tx.ExecContext(ctx, "INSERT INTO jobs (jobid, employerid) VALUES (?, ?)",
				j.ID, j.EmployerID); err != nil {
				return fmt.Errorf("failed to insert job %d: %w", j.ID, err)
			}
		}
		for _, s := range fx.Samples {
			if _, err := tx.ExecContext(ctx, `INSERT INTO participantstatuslogs
				(participantid, timestamp, x, y, mode, apartmentid, jobid)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				s.ParticipantID, s.Timestamp.Unix(), s.X, s.Y, s.Mode, s.ApartmentID, s.JobID); err != nil {
				return fmt.Errorf("failed to insert position sample: %w", err)
			}
		}
		for _, c := range fx.Checkins {
			if _, err := tx.ExecContext(ctx, `INSERT INTO checkinjournal
				(participantid, timestamp, venueid, venuetype) VALUES (?, ?, ?, ?)`,
				c.ParticipantID, c.Timestamp.Unix(), c.VenueID, c.VenueType); err != nil {
				return fmt.Errorf("failed to insert checkin: %w", err)
			}
		}
		for _, t := range fx.Trips {
			if _, err := tx.ExecContext(ctx, `INSERT INTO traveljournal
				(travelid, participantid, travelstarttime, travelendtime, purpose) VALUES (?, ?, ?, ?, ?)`,
				t.TravelID, t.ParticipantID, t.Start.Unix(), t.End.Unix(), t.Purpose); err != nil {
				return fmt.Errorf("failed to insert trip %d: %w", t.TravelID, err)
			}
		}
		for _, ev := range fx.Financial {
			if _, err := tx.ExecContext(ctx, `INSERT INTO financialjournal
				(participantid, timestamp, category, amount) VALUES (?, ?, ?, ?)`,
				ev.ParticipantID, ev.Timestamp.Unix(), ev.Category, ev.Amount); err != nil {
				return fmt.Errorf("failed to insert financial event: %w", err)
			}
		}
		for _, in := range fx.Interactions {
			if _, err := tx.ExecContext(ctx, `INSERT INTO socialnetwork
				(timestamp, participantidfrom, participantidto) VALUES (?, ?, ?)`,
				in.Timestamp.Unix(), in.From, in.To); err != nil {
				return fmt.Errorf("failed to insert interaction: %w", err)
			}
		}
		return nil
	})
}
