// Package utils holds small helpers shared across handlers: seat grid
// code generation and round id generation.
package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// SeatCodes expands a rows x cols grid into the flat list of seat codes
// for one round, row-major. A code is the row letter followed by the
// zero-padded column number, e.g. "A0000" for the first seat. Codes are
// unique within a round but deliberately not across rounds; slot
// identity is always (round, seat).
func SeatCodes(rows, cols int) []string {
	codes := make([]string, 0, rows*cols)
	for r := 0; r < rows; r++ {
		rowLetter := string(rune('A' + r))
		for c := 0; c < cols; c++ {
			codes = append(codes, fmt.Sprintf("%s%04d", rowLetter, c))
		}
	}
	return codes
}

// NewRoundID generates a fresh unique round identifier.
func NewRoundID() string {
	return uuid.NewString()
}
