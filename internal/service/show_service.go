package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/payment"
	"github.com/iliyamo/cinema-ticket-booking/internal/repository"
	"github.com/iliyamo/cinema-ticket-booking/internal/schedule"
)

var (
	// ErrInvalidShow wraps every show field validation failure.
	ErrInvalidShow = errors.New("invalid show")
	// ErrSeatsBelowBooked is returned when totalSeats would drop below the
	// highest booked seat.
	ErrSeatsBelowBooked = errors.New("total seats cannot be below a booked seat")
	// ErrNoShowsCreated is returned when a recurring batch creates nothing.
	ErrNoShowsCreated = errors.New("no shows created")
)

// ShowInput carries the fields of a new show.  Date is ignored by
// CreateRecurring.
type ShowInput struct {
	Name        string
	MovieID     string
	TheatreID   string
	Date        string
	Time        string
	TicketPrice float64
	TotalSeats  int
}

// ShowPatch holds optional updates; nil fields are left unchanged.
type ShowPatch struct {
	Name        *string
	MovieID     *string
	Date        *string
	Time        *string
	TicketPrice *float64
	TotalSeats  *int
}

// RecurringResult reports a batch creation.
type RecurringResult struct {
	Created int      `json:"created"`
	Failed  int      `json:"failed"`
	Dates   []string `json:"dates"`
}

// ShowService enforces theatre ownership and show invariants on top of
// ShowRepo.
type ShowService struct {
	shows    *repository.ShowRepo
	movies   *repository.MovieRepo
	theatres *repository.TheatreRepo
	log      *zap.Logger
}

func NewShowService(shows *repository.ShowRepo, movies *repository.MovieRepo, theatres *repository.TheatreRepo, log *zap.Logger) *ShowService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ShowService{shows: shows, movies: movies, theatres: theatres, log: log}
}

func invalid(msg string) error { return fmt.Errorf("%w: %s", ErrInvalidShow, msg) }

func validateDate(d string) error {
	if _, err := time.Parse(schedule.DateLayout, d); err != nil {
		return invalid("date must be YYYY-MM-DD")
	}
	return nil
}

func validateTime(t string) error {
	if _, err := time.Parse("15:04", t); err != nil {
		return invalid("time must be HH:MM")
	}
	return nil
}

func validatePrice(p float64) error {
	if payment.ToMinorUnits(p) <= 0 {
		return invalid("ticket price must be positive")
	}
	return nil
}

func validateSeats(n int) error {
	if n <= 0 {
		return invalid("total seats must be positive")
	}
	return nil
}

// ownedTheatre loads a theatre and checks the caller owns it.
func (s *ShowService) ownedTheatre(ctx context.Context, ownerID, theatreID string) (*model.Theatre, error) {
	t, err := s.theatres.GetByID(ctx, theatreID)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != ownerID {
		return nil, repository.ErrForbidden
	}
	return t, nil
}

func (s *ShowService) prepare(ctx context.Context, ownerID string, in ShowInput) (*model.Show, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.MovieID == "" || in.TheatreID == "" {
		return nil, invalid("name, movie and theatre are required")
	}
	if err := validateTime(in.Time); err != nil {
		return nil, err
	}
	if err := validatePrice(in.TicketPrice); err != nil {
		return nil, err
	}
	if err := validateSeats(in.TotalSeats); err != nil {
		return nil, err
	}
	if _, err := s.ownedTheatre(ctx, ownerID, in.TheatreID); err != nil {
		return nil, err
	}
	if _, err := s.movies.GetByID(ctx, in.MovieID); err != nil {
		return nil, err
	}
	return &model.Show{
		Name:             in.Name,
		MovieID:          in.MovieID,
		TheatreID:        in.TheatreID,
		Time:             in.Time,
		TicketPriceCents: payment.ToMinorUnits(in.TicketPrice),
		TotalSeats:       in.TotalSeats,
	}, nil
}

// Create adds a show to a theatre the caller owns.
func (s *ShowService) Create(ctx context.Context, ownerID string, in ShowInput) (*model.Show, error) {
	if err := validateDate(in.Date); err != nil {
		return nil, err
	}
	show, err := s.prepare(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}
	show.Date = in.Date
	if err := s.shows.Create(ctx, show); err != nil {
		return nil, err
	}
	return show, nil
}

// CreateRecurring creates one show per date produced by rec.  Each insert
// stands alone; failures are counted and the batch carries on.
func (s *ShowService) CreateRecurring(ctx context.Context, ownerID string, in ShowInput, rec schedule.Recurrence) (RecurringResult, error) {
	dates, err := schedule.Expand(rec)
	if err != nil {
		return RecurringResult{}, fmt.Errorf("%w: %v", ErrInvalidShow, err)
	}
	tmpl, err := s.prepare(ctx, ownerID, in)
	if err != nil {
		return RecurringResult{}, err
	}
	res := RecurringResult{Dates: []string{}}
	for _, d := range dates {
		show := *tmpl
		show.Date = d.Format(schedule.DateLayout)
		if err := s.shows.Create(ctx, &show); err != nil {
			res.Failed++
			s.log.Warn("recurring show insert failed", zap.String("date", show.Date), zap.Error(err))
			continue
		}
		res.Created++
		res.Dates = append(res.Dates, show.Date)
	}
	if res.Created == 0 {
		return res, ErrNoShowsCreated
	}
	return res, nil
}

// Update applies patch to a show in a theatre the caller owns.
func (s *ShowService) Update(ctx context.Context, ownerID, showID string, patch ShowPatch) (*model.Show, error) {
	current, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedTheatre(ctx, ownerID, current.TheatreID); err != nil {
		return nil, err
	}
	if patch.MovieID != nil {
		if _, err := s.movies.GetByID(ctx, *patch.MovieID); err != nil {
			return nil, err
		}
	}
	mutate := func(sh *model.Show) error {
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return invalid("name cannot be empty")
			}
			sh.Name = name
		}
		if patch.MovieID != nil {
			sh.MovieID = *patch.MovieID
		}
		if patch.Date != nil {
			if err := validateDate(*patch.Date); err != nil {
				return err
			}
			sh.Date = *patch.Date
		}
		if patch.Time != nil {
			if err := validateTime(*patch.Time); err != nil {
				return err
			}
			sh.Time = *patch.Time
		}
		if patch.TicketPrice != nil {
			if err := validatePrice(*patch.TicketPrice); err != nil {
				return err
			}
			sh.TicketPriceCents = payment.ToMinorUnits(*patch.TicketPrice)
		}
		if patch.TotalSeats != nil {
			if err := validateSeats(*patch.TotalSeats); err != nil {
				return err
			}
			if *patch.TotalSeats < maxSeat(sh.BookedSeats) {
				return ErrSeatsBelowBooked
			}
			sh.TotalSeats = *patch.TotalSeats
		}
		return nil
	}
	for attempt := 1; ; attempt++ {
		updated, err := s.shows.Update(ctx, showID, mutate)
		if errors.Is(err, repository.ErrVersionConflict) && attempt < reserveAttempts {
			continue
		}
		return updated, err
	}
}

// Delete removes a show without bookings from a theatre the caller owns.
func (s *ShowService) Delete(ctx context.Context, ownerID, showID string) error {
	current, err := s.shows.GetByID(ctx, showID)
	if err != nil {
		return err
	}
	if _, err := s.ownedTheatre(ctx, ownerID, current.TheatreID); err != nil {
		return err
	}
	return s.shows.Delete(ctx, showID)
}

// ListByTheatre returns a theatre's shows.  Partners only see their own
// theatres; admins see any.
func (s *ShowService) ListByTheatre(ctx context.Context, userID, role, theatreID string) ([]model.ShowDetail, error) {
	if role != model.RoleAdmin {
		if _, err := s.ownedTheatre(ctx, userID, theatreID); err != nil {
			return nil, err
		}
	} else if _, err := s.theatres.GetByID(ctx, theatreID); err != nil {
		return nil, err
	}
	return s.shows.ListByTheatre(ctx, theatreID)
}

// TheatreShows groups one theatre's shows of a movie on a date.
type TheatreShows struct {
	Theatre *model.Theatre
	Shows   []model.ShowDetail
}

// TheatresByMovie groups a movie's shows on date by active theatre, in
// theatre name order.
func (s *ShowService) TheatresByMovie(ctx context.Context, movieID, date string) ([]TheatreShows, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	list, err := s.shows.ListByMovieAndDate(ctx, movieID, date)
	if err != nil {
		return nil, err
	}
	out := []TheatreShows{}
	idx := map[string]int{}
	for _, d := range list {
		i, ok := idx[d.TheatreID]
		if !ok {
			i = len(out)
			idx[d.TheatreID] = i
			out = append(out, TheatreShows{Theatre: d.Theatre})
		}
		out[i].Shows = append(out[i].Shows, d)
	}
	return out, nil
}
