package reconcile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	domain.Repository

	bookings  []*models.Booking
	services  map[string]*models.Service
	employees map[string]*models.Employee
	byUserID  map[string]*models.Employee
}

func (f *fakeRepo) ListBookingsByDate(_ context.Context, date string) ([]*models.Booking, error) {
	var out []*models.Booking
	for _, b := range f.bookings {
		if b.Date == date {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetService(_ context.Context, id string) (*models.Service, error) {
	if s, ok := f.services[id]; ok {
		return s, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeRepo) GetEmployee(_ context.Context, id string) (*models.Employee, error) {
	if e, ok := f.employees[id]; ok {
		return e, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakeRepo) GetEmployeeByUserID(_ context.Context, userID string) (*models.Employee, error) {
	if e, ok := f.byUserID[userID]; ok {
		return e, nil
	}
	return nil, database.ErrNotFound
}

func testRepo() *fakeRepo {
	return &fakeRepo{
		services: map[string]*models.Service{
			"svc-1": {ID: "svc-1", Name: "Haircut", Price: 10000, DurationMinutes: 30},
		},
		employees: map[string]*models.Employee{
			"emp-1": {ID: "emp-1", Name: "Alice", SelfEmployed: false},
			"emp-2": {ID: "emp-2", Name: "Bob", UserID: "user-bob", SelfEmployed: true},
		},
		byUserID: map[string]*models.Employee{
			"user-bob": {ID: "emp-2", Name: "Bob", UserID: "user-bob", SelfEmployed: true},
		},
	}
}

func newReporter(repo domain.Repository) *Reporter {
	logger := zerolog.Nop()
	return NewReporter(repo, &logger)
}

func TestDailyTotalsAggregatesByCloserAndMethod(t *testing.T) {
	repo := testRepo()
	repo.bookings = []*models.Booking{
		{
			// Employed staff contribute the full service price.
			ID: "b-1", EmployeeID: "emp-1", ServiceID: "svc-1", Date: "2025-03-10",
			PaymentStatus: models.PaymentPaid, PaymentMethod: models.MethodCash,
			ClosedBy: "emp-1",
		},
		{
			// Self-employed staff retain only the recorded deposit.
			ID: "b-2", EmployeeID: "emp-2", ServiceID: "svc-1", Date: "2025-03-10",
			DepositPaid: true, DepositAmount: 2500, PaymentMethod: models.MethodPOS,
			CreatedBy: "user-bob",
		},
		{
			// No registered payment: excluded.
			ID: "b-3", EmployeeID: "emp-1", ServiceID: "svc-1", Date: "2025-03-10",
			PaymentStatus: models.PaymentPending,
		},
		{
			// Different day: excluded.
			ID: "b-4", EmployeeID: "emp-1", ServiceID: "svc-1", Date: "2025-03-11",
			PaymentStatus: models.PaymentPaid,
		},
	}

	report, err := newReporter(repo).DailyTotals(context.Background(), "2025-03-10")
	require.NoError(t, err)

	require.Len(t, report.Rows, 2)
	assert.Equal(t, CloserTotals{Closer: "Alice", Cash: 10000, Total: 10000}, report.Rows[0])
	assert.Equal(t, CloserTotals{Closer: "Bob", POS: 2500, Total: 2500}, report.Rows[1])
	assert.Equal(t, int64(10000), report.TotalCash)
	assert.Equal(t, int64(2500), report.TotalPOS)
	assert.Equal(t, int64(12500), report.Total)
}

func TestDailyTotalsDepositFallbackAndExtras(t *testing.T) {
	repo := testRepo()
	repo.bookings = []*models.Booking{
		{
			ID: "b-1", EmployeeID: "emp-2", ServiceID: "svc-1", Date: "2025-03-10",
			DepositPaid: true, PaymentMethod: models.MethodCash,
			Extras: []models.ExtraService{{Name: "Styling", Price: 1500}},
		},
	}

	report, err := newReporter(repo).DailyTotals(context.Background(), "2025-03-10")
	require.NoError(t, err)

	// No recorded deposit amount: fall back to half the service price, then
	// add extras in full.
	require.Len(t, report.Rows, 1)
	assert.Equal(t, int64(5000+1500), report.Rows[0].Total)
}

func TestDailyTotalsCloserFallbackChain(t *testing.T) {
	repo := testRepo()
	repo.bookings = []*models.Booking{
		{
			ID: "b-1", EmployeeID: "emp-1", ServiceID: "svc-1", Date: "2025-03-10",
			PaymentStatus: models.PaymentPaid,
			CreatedBy:     "user-unknown", CreatedByName: "Front Desk",
		},
		{
			ID: "b-2", EmployeeID: "emp-1", ServiceID: "svc-1", Date: "2025-03-10",
			PaymentStatus: models.PaymentPaid,
		},
	}

	report, err := newReporter(repo).DailyTotals(context.Background(), "2025-03-10")
	require.NoError(t, err)

	require.Len(t, report.Rows, 2)
	assert.Equal(t, "Front Desk", report.Rows[0].Closer)
	assert.Equal(t, unspecifiedCloser, report.Rows[1].Closer)
}

func TestDailyTotalsEmptyDay(t *testing.T) {
	report, err := newReporter(testRepo()).DailyTotals(context.Background(), "2025-03-10")
	require.NoError(t, err)

	assert.Empty(t, report.Rows)
	assert.Zero(t, report.Total)
}

func TestWriteXLSX(t *testing.T) {
	report := &DailyReport{
		Date: "2025-03-10",
		Rows: []CloserTotals{
			{Closer: "Alice", Cash: 10000, Total: 10000},
		},
		TotalCash: 10000,
		Total:     10000,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(report, &buf))
	assert.NotZero(t, buf.Len())
}

func TestArchiveWritesFile(t *testing.T) {
	reporter := newReporter(testRepo())

	report := &DailyReport{
		Date:      "2025-03-10",
		Rows:      []CloserTotals{{Closer: "Alice", Cash: 10000, Total: 10000}},
		TotalCash: 10000,
		Total:     10000,
	}

	// No export directory configured: archiving is a no-op.
	path, err := reporter.Archive(report)
	require.NoError(t, err)
	assert.Empty(t, path)

	dir := t.TempDir()
	reporter.SetExportDir(dir)

	path, err = reporter.Archive(report)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "reconciliation_2025-03-10.xlsx"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}
