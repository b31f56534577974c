package analysis

import (
	"context"

	"github.com/golang/geo/r2"
	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/spatial"
)

// Resident is a participant together with their home location.
type Resident struct {
	Participant models.Participant
	Home        models.PlaceLocation
}

func locateResident(r Resident) (r2.Point, bool) {
	return r.Home.Point(), true
}

// Demographics accumulates residents by home cell.
func Demographics(ctx context.Context, grid spatial.GridIndex, residents []Resident, shards int) ([]models.DemographicCell, error) {
	acc, err := AccumulateSharded(ctx, grid, residents, shards, locateResident, func(s *CellState, r Resident) {
		p := r.Participant
		s.AddPopulation(1)
		s.AddSum("age", float64(p.Age))
		s.AddSum("household_size", float64(p.HouseholdSize))
		s.AddSum("joviality", p.Joviality)
		if p.HaveKids {
			s.Inc("with_kids", 1)
		}
		s.Inc("edu:"+p.EducationLevel, 1)
	})
	if err != nil {
		return nil, err
	}

	return Finalize(acc, func(c spatial.Cell, s *CellState) models.DemographicCell {
		return models.DemographicCell{
			CellRef:          cellRef(c, s),
			Population:       s.Population,
			AvgAge:           s.Mean("age"),
			AvgHouseholdSize: s.Mean("household_size"),
			AvgJoviality:     s.Mean("joviality"),
			PctWithKids:      s.Fraction("with_kids"),
			PctGraduate:      s.Fraction("edu:" + models.EducationGraduate),
			PctBachelors:     s.Fraction("edu:" + models.EducationBachelors),
			PctHighSchool:    s.Fraction("edu:" + models.EducationHighSchool),
			PctLowEducation:  s.Fraction("edu:" + models.EducationLow),
		}
	}), nil
}

// Ledger holds one participant's lifetime financial totals.
type Ledger struct {
	Wage       Fixed
	Food       Fixed
	Recreation Fixed
	Shelter    Fixed
}

// Ledgers sums financial events per participant. Wage keeps its sign;
// expense categories are summed by magnitude.
type Ledgers map[int64]*Ledger

// Add folds one event.
func (l Ledgers) Add(ev models.FinancialEvent) {
	led, ok := l[ev.ParticipantID]
	if !ok {
		led = &Ledger{}
		l[ev.ParticipantID] = led
	}
	amount := ToFixed(ev.Amount)
	if amount < 0 {
		amount = -amount
	}
	switch ev.Category {
	case models.CategoryWage:
		led.Wage += ToFixed(ev.Amount)
	case models.CategoryFood:
		led.Food += amount
	case models.CategoryRecreation:
		led.Recreation += amount
	case models.CategoryShelter:
		led.Shelter += amount
	}
}

type residentLedger struct {
	home   models.PlaceLocation
	ledger *Ledger
}

// Financial averages ledgers over the residents of each home cell. Only
// residents that have a ledger are counted.
func Financial(ctx context.Context, grid spatial.GridIndex, residents []Resident, ledgers Ledgers, shards int) ([]models.FinancialCell, error) {
	rows := make([]residentLedger, 0, len(residents))
	for _, r := range residents {
		if led, ok := ledgers[r.Participant.ID]; ok {
			rows = append(rows, residentLedger{home: r.Home, ledger: led})
		}
	}

	acc, err := AccumulateSharded(ctx, grid, rows,
		shards,
		func(r residentLedger) (r2.Point, bool) { return r.home.Point(), true },
		func(s *CellState, r residentLedger) {
			s.AddPopulation(1)
			s.AddSum("wage", r.ledger.Wage.Float())
			s.AddSum("food", r.ledger.Food.Float())
			s.AddSum("recreation", r.ledger.Recreation.Float())
			s.AddSum("shelter", r.ledger.Shelter.Float())
		})
	if err != nil {
		return nil, err
	}

	return Finalize(acc, func(c spatial.Cell, s *CellState) models.FinancialCell {
		return models.FinancialCell{
			CellRef:               cellRef(c, s),
			Participants:          s.Population,
			AvgIncome:             s.Mean("wage"),
			AvgFoodSpending:       s.Mean("food"),
			AvgRecreationSpending: s.Mean("recreation"),
			AvgShelterSpending:    s.Mean("shelter"),
		}
	}), nil
}

// VenueCells counts non-residential venues by their own location.
func VenueCells(grid spatial.GridIndex, venues []models.Venue) []models.VenueCell {
	acc := AccumulateAll(grid, venues,
		func(v models.Venue) (r2.Point, bool) { return v.Point(), v.Type != models.VenueApartment },
		func(s *CellState, v models.Venue) {
			s.AddPopulation(1)
			s.Inc(v.Type, 1)
		})

	return Finalize(acc, func(c spatial.Cell, s *CellState) models.VenueCell {
		return models.VenueCell{
			CellRef:         cellRef(c, s),
			RestaurantCount: s.Count(models.VenueRestaurant),
			PubCount:        s.Count(models.VenuePub),
			SchoolCount:     s.Count(models.VenueSchool),
			EmployerCount:   s.Count(models.VenueWorkplace),
			TotalVenues:     s.Population,
		}
	})
}

// ApartmentCells summarises apartments by location.
func ApartmentCells(grid spatial.GridIndex, venues []models.Venue) []models.ApartmentCell {
	acc := AccumulateAll(grid, venues,
		func(v models.Venue) (r2.Point, bool) { return v.Point(), v.Type == models.VenueApartment },
		func(s *CellState, v models.Venue) {
			s.AddPopulation(1)
			s.AddSum("rent", v.RentalCost)
			s.AddSum("rooms", v.Rooms)
		})

	return Finalize(acc, func(c spatial.Cell, s *CellState) models.ApartmentCell {
		return models.ApartmentCell{
			CellRef:        cellRef(c, s),
			ApartmentCount: s.Population,
			AvgRentalCost:  s.Mean("rent"),
			AvgRooms:       s.Mean("rooms"),
		}
	})
}

// ApartmentBounds returns the extent of the apartment venues.
func ApartmentBounds(venues []models.Venue) *models.Bounds {
	var pts []r2.Point
	for _, v := range venues {
		if v.Type == models.VenueApartment {
			pts = append(pts, v.Point())
		}
	}
	return spatial.BoundsOf(pts)
}

func cellRef(c spatial.Cell, s *CellState) models.CellRef {
	a := s.Anchor()
	return models.CellRef{GridX: c.X, GridY: c.Y, CellX: a.X, CellY: a.Y}
}
