package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"parking-system/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type IncomingVehicleRequest struct {
	Category     string `json:"category"`
	Registration string `json:"registration"`
}

type ExitingVehicleRequest struct {
	Registration string `json:"registration"`
}

type SpotResponse struct {
	SpotNumber int    `json:"spot_number"`
	Category   string `json:"category"`
	Available  bool   `json:"available"`
}

type TicketResponse struct {
	ID            int64        `json:"id"`
	Registration  string       `json:"registration"`
	Spot          SpotResponse `json:"spot"`
	State         string       `json:"state"`
	InTime        time.Time    `json:"in_time"`
	OutTime       *time.Time   `json:"out_time,omitempty"`
	Price         string       `json:"price"`
	ReturningUser bool         `json:"returning_user"`
}

type IncomingVehicleResponse struct {
	Ticket        TicketResponse `json:"ticket"`
	ReturningUser bool           `json:"returning_user"`
	Messages      []string       `json:"messages"`
}

type ExitingVehicleResponse struct {
	Ticket        TicketResponse `json:"ticket"`
	Fare          string         `json:"fare"`
	ReturningUser bool           `json:"returning_user"`
	Messages      []string       `json:"messages"`
}

type ReturningUserResponse struct {
	Registration  string `json:"registration"`
	ReturningUser bool   `json:"returning_user"`
}

type SpotsResponse struct {
	Total     int            `json:"total"`
	Occupied  int            `json:"occupied"`
	Available int            `json:"available"`
	Spots     []SpotResponse `json:"spots"`
}

func newSpotResponse(s parking.ParkingSpot) SpotResponse {
	return SpotResponse{
		SpotNumber: s.ID,
		Category:   s.Category.String(),
		Available:  s.Available,
	}
}

func newTicketResponse(t *parking.Ticket) TicketResponse {
	return TicketResponse{
		ID:            t.ID,
		Registration:  t.VehicleRegNumber,
		Spot:          newSpotResponse(t.Spot),
		State:         string(t.State()),
		InTime:        t.InTime,
		OutTime:       t.OutTime,
		Price:         t.Price.String(),
		ReturningUser: t.ReturningUser,
	}
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}
