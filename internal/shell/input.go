package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrMalformedInput = errors.New("malformed input")
	ErrEndOfInput     = errors.New("end of input")
	// ErrInputFailed wraps a read error. The scanner cannot recover from it.
	ErrInputFailed    = errors.New("input failed")
)

// IsTerminal reports whether no further input can be read.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrEndOfInput) || errors.Is(err, ErrInputFailed)
}

// InputReader reads one answer per line.
type InputReader struct {
	scanner *bufio.Scanner
}

func NewInputReader(r io.Reader) *InputReader {
	return &InputReader{scanner: bufio.NewScanner(r)}
}

func (r *InputReader) readLine() (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInputFailed, err)
		}
		return "", ErrEndOfInput
	}
	return strings.TrimSpace(r.scanner.Text()), nil
}

// ReadSelection reads a menu number.
func (r *InputReader) ReadSelection() (int, error) {
	line, err := r.readLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedInput, line)
	}
	return n, nil
}

func (r *InputReader) ReadVehicleRegistrationNumber() (string, error) {
	line, err := r.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return "", fmt.Errorf("%w: empty registration number", ErrMalformedInput)
	}
	return line, nil
}
