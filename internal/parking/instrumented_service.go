package parking

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type InstrumentedSessionService struct {
	*SessionService
	telemetry *TelemetryProvider

	// Metrics
	sessionsOpened    metric.Int64Counter
	sessionsClosed    metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	totalSpotsGauge   metric.Int64UpDownCounter
	fareAmount        metric.Float64Histogram
	operationDuration metric.Float64Histogram
}

// NewInstrumentedSessionService seeds the spot gauges from the store, so a
// restart over occupied spots starts from the right occupancy.
func NewInstrumentedSessionService(ctx context.Context, svc *SessionService, telemetry *TelemetryProvider) (*InstrumentedSessionService, error) {
	meter := telemetry.Meter()

	sessionsOpened, err := meter.Int64Counter("parking_sessions_opened_total",
		metric.WithDescription("Total number of incoming vehicle requests"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	sessionsClosed, err := meter.Int64Counter("parking_sessions_closed_total",
		metric.WithDescription("Total number of exiting vehicle requests"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied parking spots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	totalSpotsGauge, err := meter.Int64UpDownCounter("parking_lot_total_spots",
		metric.WithDescription("Total number of parking spots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	fareAmount, err := meter.Float64Histogram("parking_fare_amount",
		metric.WithDescription("Fares charged on exit"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of parking session operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	spots, err := svc.ListSpots(ctx)
	if err != nil {
		return nil, err
	}

	total := make(map[Category]int64)
	occupied := make(map[Category]int64)
	for _, spot := range spots {
		total[spot.Category]++
		if !spot.Available {
			occupied[spot.Category]++
		}
	}
	for category, n := range total {
		attrs := metric.WithAttributes(attribute.String("vehicle_category", category.String()))
		totalSpotsGauge.Add(ctx, n, attrs)
		occupancyGauge.Add(ctx, occupied[category], attrs)
	}

	return &InstrumentedSessionService{
		SessionService:    svc,
		telemetry:         telemetry,
		sessionsOpened:    sessionsOpened,
		sessionsClosed:    sessionsClosed,
		occupancyGauge:    occupancyGauge,
		totalSpotsGauge:   totalSpotsGauge,
		fareAmount:        fareAmount,
		operationDuration: operationDuration,
	}, nil
}

// errorStatus labels expected rejections separately from failures.
func errorStatus(err error) string {
	switch {
	case errors.Is(err, ErrNoSpotAvailable):
		return "full"
	case errors.Is(err, ErrNoOpenSession):
		return "not_found"
	case errors.Is(err, ErrInvalidCategory), errors.Is(err, ErrInvalidRegistration),
		errors.Is(err, ErrInvalidDuration), errors.Is(err, ErrSessionAlreadyOpen):
		return "rejected"
	}
	return "failed"
}

func (s *InstrumentedSessionService) ProcessIncomingVehicle(ctx context.Context, category Category, regNumber string) (*ArrivalResult, error) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "parking_session.incoming",
		trace.WithAttributes(
			attribute.String("vehicle.registration_number", regNumber),
			attribute.String("vehicle.category", category.String()),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("allocating_spot")

	res, err := s.SessionService.ProcessIncomingVehicle(ctx, category, regNumber)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "incoming"),
		attribute.String("vehicle_category", category.String()),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", errorStatus(err)))
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(
			attribute.Int("parking.spot_number", res.Ticket.Spot.ID),
			attribute.Int64("parking.ticket_id", res.Ticket.ID),
			attribute.Bool("parking.returning_user", res.ReturningUser),
		)
		span.AddEvent("spot_allocated", trace.WithAttributes(
			attribute.Int("spot_number", res.Ticket.Spot.ID),
		))
		s.occupancyGauge.Add(ctx, 1, metric.WithAttributes(
			attribute.String("vehicle_category", category.String())))
	}

	s.sessionsOpened.Add(ctx, 1, metric.WithAttributes(labels...))
	s.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return res, err
}

func (s *InstrumentedSessionService) ProcessExitingVehicle(ctx context.Context, regNumber string) (*DepartureResult, error) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "parking_session.exiting",
		trace.WithAttributes(
			attribute.String("vehicle.registration_number", regNumber),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("closing_ticket")

	res, err := s.SessionService.ProcessExitingVehicle(ctx, regNumber)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "exiting"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", errorStatus(err)))
	} else {
		category := res.Ticket.Spot.Category.String()
		fare := res.Fare.InexactFloat64()

		labels = append(labels,
			attribute.String("status", "success"),
			attribute.String("vehicle_category", category),
		)
		span.SetAttributes(
			attribute.Int("parking.spot_number", res.Ticket.Spot.ID),
			attribute.Int64("parking.ticket_id", res.Ticket.ID),
			attribute.Bool("parking.returning_user", res.ReturningUser),
			attribute.String("parking.fare", res.Fare.String()),
		)
		span.AddEvent("spot_released")

		s.occupancyGauge.Add(ctx, -1, metric.WithAttributes(
			attribute.String("vehicle_category", category)))
		s.fareAmount.Record(ctx, fare, metric.WithAttributes(
			attribute.String("vehicle_category", category),
			attribute.Bool("returning_user", res.ReturningUser),
		))
	}

	s.sessionsClosed.Add(ctx, 1, metric.WithAttributes(labels...))
	s.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return res, err
}

func (s *InstrumentedSessionService) IsReturningUser(ctx context.Context, regNumber string) (bool, error) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "parking_session.returning_user",
		trace.WithAttributes(
			attribute.String("vehicle.registration_number", regNumber),
		))
	defer span.End()

	start := time.Now()

	returning, err := s.SessionService.IsReturningUser(ctx, regNumber)

	labels := []attribute.KeyValue{
		attribute.String("operation", "returning_user"),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", errorStatus(err)))
	} else {
		span.SetAttributes(attribute.Bool("parking.returning_user", returning))
		labels = append(labels, attribute.String("status", "success"))
	}

	s.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return returning, err
}

func (s *InstrumentedSessionService) ListSpots(ctx context.Context) ([]*ParkingSpot, error) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "parking_session.list_spots")
	defer span.End()

	spots, err := s.SessionService.ListSpots(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	available := 0
	for _, spot := range spots {
		if spot.Available {
			available++
		}
	}
	span.SetAttributes(
		attribute.Int("parking.total_spots", len(spots)),
		attribute.Int("parking.available_spots", available),
	)
	return spots, nil
}

func (s *InstrumentedSessionService) GetTicket(ctx context.Context, regNumber string) (*Ticket, error) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "parking_session.get_ticket",
		trace.WithAttributes(
			attribute.String("vehicle.registration_number", regNumber),
		))
	defer span.End()

	ticket, err := s.SessionService.GetTicket(ctx, regNumber)
	if errors.Is(err, ErrNotFound) {
		span.AddEvent("ticket_not_found")
		return nil, err
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("parking.ticket_id", ticket.ID),
		attribute.String("parking.session_state", string(ticket.State())),
	)
	return ticket, nil
}
