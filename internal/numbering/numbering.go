// Package numbering formats and parses the organization-prefixed client and
// case numbers, e.g. ABC/005 and ABC/005/LIT/01/2025.
package numbering

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxPrefixLength is the longest organization prefix accepted.
const MaxPrefixLength = 5

var (
	ErrEmptyPrefix        = errors.New("organization prefix is required")
	ErrPrefixTooLong      = fmt.Errorf("organization prefix must be %d characters or less", MaxPrefixLength)
	ErrInvalidPrefix      = errors.New("organization prefix may only contain letters and digits")
	ErrInvalidNumber      = errors.New("invalid client number")
	ErrUnknownMatterType  = errors.New("unknown matter type")
	ErrNonPositiveCounter = errors.New("sequence number must be positive")
)

// NormalizePrefix trims and upper-cases a prefix and checks that it is
// 1 to MaxPrefixLength letters or digits.
func NormalizePrefix(prefix string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(prefix))
	if p == "" {
		return "", ErrEmptyPrefix
	}
	if len(p) > MaxPrefixLength {
		return "", ErrPrefixTooLong
	}
	for _, r := range p {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", ErrInvalidPrefix
		}
	}
	return p, nil
}

// ClientNumber returns "{prefix}/{seq}" with seq zero-padded to three digits.
// Sequences above 999 are printed in full.
func ClientNumber(prefix string, seq int) string {
	return fmt.Sprintf("%s/%03d", prefix, seq)
}

// CaseNumber returns "{prefix}/{clientSeq}/{matterType}/{seq}/{year}" with the
// case sequence zero-padded to two digits.
func CaseNumber(prefix, clientSeq, matterType string, seq, year int) string {
	return fmt.Sprintf("%s/%s/%s/%02d/%d", prefix, clientSeq, matterType, seq, year)
}

// Next returns the sequence that follows the current maximum.
func Next(currentMax int) int {
	if currentMax < 0 {
		currentMax = 0
	}
	return currentMax + 1
}

// ParseClientNumber splits "ABC/005" into its prefix and sequence.
func ParseClientNumber(number string) (prefix string, seq int, err error) {
	parts := strings.Split(number, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidNumber, number)
	}
	seq, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidNumber, number)
	}
	if seq <= 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrNonPositiveCounter, number)
	}
	return parts[0], seq, nil
}

// ClientSequence returns the zero-padded sequence segment of a client
// number, the form embedded in case numbers.
func ClientSequence(clientNumber string) (string, error) {
	_, seq, err := ParseClientNumber(clientNumber)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%03d", seq), nil
}
