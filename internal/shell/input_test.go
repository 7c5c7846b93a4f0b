package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputReader(t *testing.T) {
	r := NewInputReader(strings.NewReader("1\n  ABCDEF \nxyz\n\n"))

	n, err := r.ReadSelection()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reg, err := r.ReadVehicleRegistrationNumber()
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF", reg)

	_, err = r.ReadSelection()
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = r.ReadVehicleRegistrationNumber()
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = r.ReadSelection()
	assert.ErrorIs(t, err, ErrEndOfInput)
}

func TestInputReaderLineTooLong(t *testing.T) {
	r := NewInputReader(strings.NewReader(strings.Repeat("9", 70*1024) + "\n3\n"))

	_, err := r.ReadSelection()
	assert.ErrorIs(t, err, ErrInputFailed)
	assert.ErrorIs(t, err, bufio.ErrTooLong)
	assert.True(t, IsTerminal(err))

	_, err = r.ReadSelection()
	assert.ErrorIs(t, err, ErrInputFailed)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(ErrEndOfInput))
	assert.True(t, IsTerminal(fmt.Errorf("%w: %w", ErrInputFailed, io.ErrUnexpectedEOF)))
	assert.False(t, IsTerminal(ErrMalformedInput))
}
