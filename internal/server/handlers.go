package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"parking-system/internal/logging"
	"parking-system/internal/messages"
	"parking-system/internal/parking"
)

func getServiceName() string {
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		return name
	}
	return parking.DefaultServiceName
}

type SessionService interface {
	ProcessIncomingVehicle(ctx context.Context, category parking.Category, regNumber string) (*parking.ArrivalResult, error)
	ProcessExitingVehicle(ctx context.Context, regNumber string) (*parking.DepartureResult, error)
	IsReturningUser(ctx context.Context, regNumber string) (bool, error)
	ListSpots(ctx context.Context) ([]*parking.ParkingSpot, error)
	GetTicket(ctx context.Context, regNumber string) (*parking.Ticket, error)
}

type Handler struct {
	service SessionService
}

func NewHandler(service SessionService) *Handler {
	return &Handler{service: service}
}

// statusFor maps the session error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, parking.ErrInvalidCategory),
		errors.Is(err, parking.ErrInvalidRegistration),
		errors.Is(err, parking.ErrInvalidDuration):
		return http.StatusBadRequest
	case errors.Is(err, parking.ErrNoSpotAvailable),
		errors.Is(err, parking.ErrSessionAlreadyOpen):
		return http.StatusConflict
	case errors.Is(err, parking.ErrNoOpenSession),
		errors.Is(err, parking.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, message string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Error(ctx).Err(err).Msg(message)
	}
	WriteError(ctx, w, status, message)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": getServiceName(),
		"meta":    extractMeta(r.Context()),
	})
}

func (h *Handler) IncomingVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req IncomingVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Registration == "" || req.Category == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Registration and category are required")
		return
	}

	category, err := parking.ParseCategory(req.Category)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, messages.InvalidInput)
		return
	}

	res, err := h.service.ProcessIncomingVehicle(ctx, category, req.Registration)
	if err != nil {
		h.writeServiceError(ctx, w, err, messages.IncomingError(err))
		return
	}

	WriteSuccess(ctx, w, "Vehicle parked successfully", IncomingVehicleResponse{
		Ticket:        newTicketResponse(res.Ticket),
		ReturningUser: res.ReturningUser,
		Messages:      messages.Arrival(res),
	})
}

func (h *Handler) ExitingVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ExitingVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Registration == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Registration is required")
		return
	}

	res, err := h.service.ProcessExitingVehicle(ctx, req.Registration)
	if err != nil {
		h.writeServiceError(ctx, w, err, messages.ExitingError(err))
		return
	}

	WriteSuccess(ctx, w, "Vehicle exited successfully", ExitingVehicleResponse{
		Ticket:        newTicketResponse(res.Ticket),
		Fare:          res.Fare.String(),
		ReturningUser: res.ReturningUser,
		Messages:      messages.Departure(res),
	})
}

func (h *Handler) ReturningUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	registration := chi.URLParam(r, "registration")
	returning, err := h.service.IsReturningUser(ctx, registration)
	if err != nil {
		h.writeServiceError(ctx, w, err, "Unable to look up vehicle history")
		return
	}

	WriteSuccess(ctx, w, "Vehicle history retrieved", ReturningUserResponse{
		Registration:  registration,
		ReturningUser: returning,
	})
}

func (h *Handler) ListSpots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	spots, err := h.service.ListSpots(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "Unable to list parking spots")
		return
	}

	response := SpotsResponse{
		Total: len(spots),
		Spots: make([]SpotResponse, 0, len(spots)),
	}
	for _, spot := range spots {
		if spot.Available {
			response.Available++
		} else {
			response.Occupied++
		}
		response.Spots = append(response.Spots, newSpotResponse(*spot))
	}

	WriteSuccess(ctx, w, "Spots retrieved successfully", response)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	registration := chi.URLParam(r, "registration")
	ticket, err := h.service.GetTicket(ctx, registration)
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			WriteError(ctx, w, http.StatusNotFound, "Ticket not found")
			return
		}
		h.writeServiceError(ctx, w, err, "Unable to load ticket")
		return
	}

	WriteSuccess(ctx, w, "Ticket found", newTicketResponse(ticket))
}
