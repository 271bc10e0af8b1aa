package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"salonbook/internal/booking"
	"salonbook/internal/database"
	"salonbook/internal/models"
	"salonbook/internal/reconcile"
	"salonbook/internal/schedule"
)

type actorPayload struct {
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
	ActorRole string `json:"actor_role"`
}

func (p actorPayload) actor() booking.Actor {
	return booking.Actor{
		ID:   p.ActorID,
		Name: p.ActorName,
		Role: models.Role(p.ActorRole),
	}
}

// statusFromError maps domain errors onto HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrPermissionDenied),
		errors.Is(err, booking.ErrCancellationWindow):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrSlotTaken),
		errors.Is(err, booking.ErrAlreadyFinalized),
		errors.Is(err, booking.ErrUseCancelEndpoint),
		errors.Is(err, database.ErrWindowOverlap):
		return http.StatusConflict
	case errors.Is(err, booking.ErrValidation),
		errors.Is(err, booking.ErrPaymentNotCompleted),
		errors.Is(err, booking.ErrDepositTooLow),
		errors.Is(err, database.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	query := schedule.Query{
		EmployeeID:   strings.TrimSpace(q.Get("employee_id")),
		ServiceID:    strings.TrimSpace(q.Get("service_id")),
		Date:         strings.TrimSpace(q.Get("date")),
		StaffBooking: q.Get("staff_booking") == "true",
	}
	if raw := strings.TrimSpace(q.Get("duration")); raw != "" {
		override, err := strconv.Atoi(raw)
		if err != nil || override < 0 {
			writeError(w, http.StatusBadRequest, "invalid duration")
			return
		}
		query.DurationOverride = override
	}

	if query.EmployeeID == "" || query.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "employee_id and service_id are required")
		return
	}
	if _, err := time.Parse(models.DateLayout, query.Date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	result, err := s.scheduler.DaySchedule(r.Context(), query)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listBookings(w, r)
	case http.MethodPost:
		s.createBooking(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	employeeID := strings.TrimSpace(q.Get("employee_id"))
	date := strings.TrimSpace(q.Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	var (
		bookings []*models.Booking
		err      error
	)
	if employeeID != "" {
		bookings, err = s.bookings.ListDay(r.Context(), employeeID, date)
	} else {
		bookings, err = s.repo.ListBookingsByDate(r.Context(), date)
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	var body struct {
		actorPayload
		EmployeeID       string `json:"employee_id"`
		ServiceID        string `json:"service_id"`
		ClientName       string `json:"client_name"`
		ClientEmail      string `json:"client_email"`
		ClientPhone      string `json:"client_phone"`
		Date             string `json:"date"`
		Time             string `json:"time"`
		DurationOverride int    `json:"duration_override"`
		PaymentIntentID  string `json:"payment_intent_id"`
		Unpaid           bool   `json:"unpaid"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.bookings.Create(r.Context(), booking.CreateRequest{
		EmployeeID:       body.EmployeeID,
		ServiceID:        body.ServiceID,
		ClientName:       body.ClientName,
		ClientEmail:      body.ClientEmail,
		ClientPhone:      body.ClientPhone,
		Date:             body.Date,
		Time:             body.Time,
		DurationOverride: body.DurationOverride,
		PaymentIntentID:  body.PaymentIntentID,
		Unpaid:           body.Unpaid,
		Actor:            body.actor(),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id := parts[0]

	if len(parts) == 2 {
		switch {
		case parts[1] == "cancel" && r.Method == http.MethodPost:
			s.cancelBooking(w, r, id)
		case parts[1] == "status" && r.Method == http.MethodPost:
			s.transitionBooking(w, r, id)
		default:
			writeError(w, http.StatusNotFound, "not found")
		}
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		b, err := s.bookings.Get(r.Context(), id)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	case http.MethodPatch:
		s.updateBooking(w, r, id)
	case http.MethodDelete:
		s.deleteBooking(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) cancelBooking(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		actorPayload
		Reason string `json:"reason"`
		Force  bool   `json:"force"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.bookings.Cancel(r.Context(), id, body.actor(), body.Reason, body.Force)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) transitionBooking(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		actorPayload
		Status        string                `json:"status"`
		PaymentMethod string                `json:"payment_method"`
		ClosedBy      string                `json:"closed_by"`
		Extras        []models.ExtraService `json:"extras"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var closeOut *booking.CloseOut
	if body.PaymentMethod != "" || body.ClosedBy != "" || len(body.Extras) > 0 {
		closeOut = &booking.CloseOut{
			PaymentMethod: models.PaymentMethod(body.PaymentMethod),
			ClosedBy:      body.ClosedBy,
			Extras:        body.Extras,
		}
	}

	updated, err := s.bookings.Transition(r.Context(), id, models.Status(body.Status), body.actor(), closeOut)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) updateBooking(w http.ResponseWriter, r *http.Request, id string) {
	var body struct {
		actorPayload
		ClientName  *string `json:"client_name"`
		ClientEmail *string `json:"client_email"`
		ClientPhone *string `json:"client_phone"`
		Date        *string `json:"date"`
		Time        *string `json:"time"`
		ServiceID   *string `json:"service_id"`
		EmployeeID  *string `json:"employee_id"`
		Status      *string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := booking.UpdateRequest{
		ClientName:  body.ClientName,
		ClientEmail: body.ClientEmail,
		ClientPhone: body.ClientPhone,
		Date:        body.Date,
		Time:        body.Time,
		ServiceID:   body.ServiceID,
		EmployeeID:  body.EmployeeID,
	}
	if body.Status != nil {
		status := models.Status(*body.Status)
		req.Status = &status
	}

	updated, err := s.bookings.Update(r.Context(), id, req, body.actor())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) deleteBooking(w http.ResponseWriter, r *http.Request, id string) {
	var body actorPayload
	if err := decodeJSON(r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.bookings.Delete(r.Context(), id, body.actor()); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *HTTPServer) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	report, err := s.reporter.DailyTotals(r.Context(), date)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if r.URL.Query().Get("export") == "xlsx" {
		if path, err := s.reporter.Archive(report); err != nil {
			s.logger.Warn().Err(err).Str("date", date).Msg("report archive failed")
		} else if path != "" {
			s.logger.Info().Str("path", path).Msg("report archived")
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=reconciliation_%s.xlsx", date))
		if err := reconcile.WriteXLSX(report, w); err != nil {
			s.logger.Error().Err(err).Msg("xlsx export failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	services, err := s.repo.ListServices(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (s *HTTPServer) handleEmployees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	employees, err := s.repo.ListEmployees(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": employees})
}

func (s *HTTPServer) handleWindows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		employeeID := strings.TrimSpace(r.URL.Query().Get("employee_id"))
		if employeeID == "" {
			writeError(w, http.StatusBadRequest, "employee_id is required")
			return
		}
		windows, err := s.repo.ListWindows(r.Context(), employeeID, strings.TrimSpace(r.URL.Query().Get("service_id")))
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		if windows == nil {
			windows = []*models.AvailabilityWindow{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"windows": windows})
	case http.MethodPost:
		var window models.AvailabilityWindow
		if err := decodeJSON(r, &window); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if window.EmployeeID == "" {
			writeError(w, http.StatusBadRequest, "employee_id is required")
			return
		}
		if err := s.repo.CreateWindow(r.Context(), &window); err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, window)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleWindowByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/windows/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if err := s.repo.DeleteWindow(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *HTTPServer) handleBlocks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		employeeID := strings.TrimSpace(q.Get("employee_id"))
		date := strings.TrimSpace(q.Get("date"))
		if employeeID == "" || date == "" {
			writeError(w, http.StatusBadRequest, "employee_id and date are required")
			return
		}
		blocks, err := s.repo.ListBlocks(r.Context(), employeeID, date)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		if blocks == nil {
			blocks = []*models.BlockedSlot{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"blocks": blocks})
	case http.MethodPost:
		var block models.BlockedSlot
		if err := decodeJSON(r, &block); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if block.EmployeeID == "" || block.Date == "" || block.StartTime == "" {
			writeError(w, http.StatusBadRequest, "employee_id, date and start_time are required")
			return
		}
		if err := s.repo.CreateBlock(r.Context(), &block); err != nil {
			s.writeDomainError(w, err)
			return
		}
		if err := s.scheduler.InvalidateDay(r.Context(), block.EmployeeID, block.Date); err != nil {
			s.logger.Warn().Err(err).Msg("schedule cache invalidation failed")
		}
		writeJSON(w, http.StatusCreated, block)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleBlockByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/blocks/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if err := s.repo.DeleteBlock(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
