// Package reconcile builds the end-of-day payment reconciliation view: what
// the salon actually retained per closer and payment method. Read-only.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

const unspecifiedCloser = "unspecified"

// CloserTotals aggregates retained amounts for one closer, in minor units.
type CloserTotals struct {
	Closer string `json:"closer"`
	Cash   int64  `json:"cash"`
	POS    int64  `json:"pos"`
	Total  int64  `json:"total"`
}

// DailyReport is the reconciliation view for a single day.
type DailyReport struct {
	Date      string         `json:"date"`
	Rows      []CloserTotals `json:"rows"`
	TotalCash int64          `json:"total_cash"`
	TotalPOS  int64          `json:"total_pos"`
	Total     int64          `json:"total"`
}

// Reporter computes daily reconciliation reports.
type Reporter struct {
	repo      domain.Repository
	logger    *zerolog.Logger
	exportDir string
}

func NewReporter(repo domain.Repository, logger *zerolog.Logger) *Reporter {
	return &Reporter{repo: repo, logger: logger}
}

// SetExportDir enables on-disk archiving of exported reports.
func (r *Reporter) SetExportDir(dir string) { r.exportDir = dir }

// Archive writes the report into the export directory and returns the file
// path. A reporter without an export directory archives nothing.
func (r *Reporter) Archive(report *DailyReport) (string, error) {
	if r.exportDir == "" {
		return "", nil
	}
	return SaveXLSX(report, r.exportDir)
}

// DailyTotals selects the day's bookings with a registered payment and
// aggregates the retained amount by closer and payment method. Self-employed
// staff retain only the deposit as the salon's cut; employed staff contribute
// the full service price. Close-out extras count in full either way.
func (r *Reporter) DailyTotals(ctx context.Context, date string) (*DailyReport, error) {
	bookings, err := r.repo.ListBookingsByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list bookings for %s: %w", date, err)
	}

	byCloser := make(map[string]*CloserTotals)
	report := &DailyReport{Date: date}

	for _, b := range bookings {
		if !b.DepositPaid && b.PaymentStatus != models.PaymentPaid {
			continue
		}

		amount, err := r.retainedAmount(ctx, b)
		if err != nil {
			return nil, err
		}

		closer := r.closerName(ctx, b)
		row, ok := byCloser[closer]
		if !ok {
			row = &CloserTotals{Closer: closer}
			byCloser[closer] = row
		}

		if b.PaymentMethod == models.MethodPOS {
			row.POS += amount
			report.TotalPOS += amount
		} else {
			row.Cash += amount
			report.TotalCash += amount
		}
		row.Total += amount
		report.Total += amount
	}

	report.Rows = make([]CloserTotals, 0, len(byCloser))
	for _, row := range byCloser {
		report.Rows = append(report.Rows, *row)
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		return report.Rows[i].Closer < report.Rows[j].Closer
	})

	return report, nil
}

func (r *Reporter) retainedAmount(ctx context.Context, b *models.Booking) (int64, error) {
	service, err := r.repo.GetService(ctx, b.ServiceID)
	if err != nil {
		return 0, fmt.Errorf("resolve service %s: %w", b.ServiceID, err)
	}

	employee, err := r.repo.GetEmployee(ctx, b.EmployeeID)
	if err != nil {
		return 0, fmt.Errorf("resolve employee %s: %w", b.EmployeeID, err)
	}

	var amount int64
	if employee.SelfEmployed {
		amount = b.DepositAmount
		if amount == 0 {
			amount = service.Deposit()
		}
	} else {
		amount = service.Price
	}

	for _, extra := range b.Extras {
		amount += extra.Price
	}
	return amount, nil
}

// closerName resolves who gets credited for the sale: the explicit closer,
// then the creator's employee record, then the recorded creator name.
func (r *Reporter) closerName(ctx context.Context, b *models.Booking) string {
	if b.ClosedBy != "" {
		if employee, err := r.repo.GetEmployee(ctx, b.ClosedBy); err == nil {
			return employee.Name
		}
		return b.ClosedBy
	}

	if b.CreatedBy != "" {
		if employee, err := r.repo.GetEmployeeByUserID(ctx, b.CreatedBy); err == nil {
			return employee.Name
		}
	}

	if b.CreatedByName != "" {
		return b.CreatedByName
	}
	return unspecifiedCloser
}
