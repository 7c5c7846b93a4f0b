package shell

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"parking-system/internal/logging"
	"parking-system/internal/messages"
	"parking-system/internal/parking"
)

const (
	optionIncoming = 1
	optionExiting  = 2
	optionShutdown = 3
)

type SessionService interface {
	ProcessIncomingVehicle(ctx context.Context, category parking.Category, regNumber string) (*parking.ArrivalResult, error)
	ProcessExitingVehicle(ctx context.Context, regNumber string) (*parking.DepartureResult, error)
}

var tracer = otel.Tracer("parking-system-shell")

// Shell is the interactive console driver.
type Shell struct {
	service SessionService
	input   *InputReader
	out     io.Writer
}

func NewShell(service SessionService, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		service: service,
		input:   NewInputReader(in),
		out:     out,
	}
}

func (s *Shell) println(a ...any) {
	fmt.Fprintln(s.out, a...)
}

// Run loops on the main menu until shutdown is chosen, input ends or ctx is
// cancelled.
func (s *Shell) Run(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")
	s.println("Welcome to Parking System!")

	for ctx.Err() == nil {
		s.printMenu()

		option, err := s.input.ReadSelection()
		if errors.Is(err, ErrInputFailed) {
			logging.Error(ctx).Err(err).Msg("reading console input")
			span.RecordError(err)
			break
		}
		if errors.Is(err, ErrEndOfInput) {
			break
		}
		if err != nil {
			logging.Debug(ctx).Err(err).Msg("invalid menu selection")
			s.println(messages.IncorrectInput)
			continue
		}

		if option == optionShutdown {
			s.println("Exiting from the system!")
			break
		}

		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.Int("command.option", option)))
		s.processCommand(cmdCtx, option)
		cmdSpan.End()
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) printMenu() {
	s.println("Please select an option. Simply enter the number to choose an action")
	s.println("1 New Vehicle Entering - Allocate Parking Space")
	s.println("2 Vehicle Exiting - Generate Ticket Price")
	s.println("3 Shutdown System")
}

func (s *Shell) processCommand(ctx context.Context, option int) {
	switch option {
	case optionIncoming:
		s.handleIncoming(ctx)
	case optionExiting:
		s.handleExiting(ctx)
	default:
		trace.SpanFromContext(ctx).AddEvent("unknown_option")
		s.println("Unsupported option. Please enter a number corresponding to the provided menu")
	}
}

func (s *Shell) readCategory() (parking.Category, error) {
	s.println("Please select vehicle type from menu")
	for i, c := range parking.Categories {
		s.println(fmt.Sprintf("%d %s", i+1, c))
	}

	n, err := s.input.ReadSelection()
	if err != nil {
		return "", err
	}
	if n < 1 || n > len(parking.Categories) {
		return "", fmt.Errorf("%w: vehicle type %d", parking.ErrInvalidCategory, n)
	}
	return parking.Categories[n-1], nil
}

// inputError reports a bad answer. Terminal errors stay quiet and Run stops
// on its next read.
func (s *Shell) inputError(span trace.Span, err error) {
	span.RecordError(err)
	if !IsTerminal(err) {
		s.println(messages.IncorrectInput)
	}
}

func (s *Shell) readRegistration() (string, error) {
	s.println("Please type the vehicle registration number and press enter key")
	return s.input.ReadVehicleRegistrationNumber()
}

func (s *Shell) handleIncoming(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "shell.incoming_vehicle")
	defer span.End()

	category, err := s.readCategory()
	if err != nil {
		s.inputError(span, err)
		return
	}

	reg, err := s.readRegistration()
	if err != nil {
		s.inputError(span, err)
		return
	}

	res, err := s.service.ProcessIncomingVehicle(ctx, category, reg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.println(messages.IncomingError(err))
		return
	}

	for _, line := range messages.Arrival(res) {
		s.println(line)
	}
}

func (s *Shell) handleExiting(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "shell.exiting_vehicle")
	defer span.End()

	reg, err := s.readRegistration()
	if err != nil {
		s.inputError(span, err)
		return
	}

	res, err := s.service.ProcessExitingVehicle(ctx, reg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.println(messages.ExitingError(err))
		return
	}

	for _, line := range messages.Departure(res) {
		s.println(line)
	}
}
