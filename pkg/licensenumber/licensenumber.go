// Package licensenumber implements the deterministic 16-digit license
// number scheme. A number is the concatenation of the holder's region code
// (first six digits of the national identity number), an encoded birth
// date, and a four digit sequence:
//
//	region(6) + day(2) + month(2) + year(2) + sequence(4)
//
// The day component carries the holder's sex: female holders store
// day+40, so 1..31 decodes to male and 41..71 to female. The encoding is
// invertible and checksum-free.
package licensenumber

import (
	"fmt"
	"strconv"
	"time"
)

// Sex is the holder's registered sex, the only attribute besides the
// birth date folded into the number.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

const (
	// Length is the exact number of digits in a license number.
	Length = 16
	// PrefixLength is the region+birthdate prefix shared by holders with
	// the same region code, birth date and sex (the "base pattern").
	PrefixLength = 10
	// MaxSequence bounds how many numbers one base pattern can carry.
	MaxSequence = 9999

	femaleDayOffset = 40
)

// ErrInvalidInput is wrapped by every validation failure in this package.
var ErrInvalidInput = fmt.Errorf("invalid license number input")

// Parsed holds the components recovered from a license number.
type Parsed struct {
	Region   string
	Day      int
	Month    int
	Year     int // two-digit year as stored; see BirthYear
	Sex      Sex
	Sequence int
}

// BirthYear interprets the stored two-digit year as 2000+YY. Holders born
// before 2000 are mis-decoded by this rule; the behavior is kept until the
// century-rollover handling is clarified.
func (p Parsed) BirthYear() int {
	return 2000 + p.Year
}

// Encode builds a license number from the holder's national identity
// number, sex, birth date and an allocated sequence (1..9999).
func Encode(nationalID string, sex Sex, birthDate time.Time, sequence int) (string, error) {
	if !isDigits(nationalID) || len(nationalID) != Length {
		return "", fmt.Errorf("%w: national ID must be exactly 16 digits", ErrInvalidInput)
	}
	if sex != SexMale && sex != SexFemale {
		return "", fmt.Errorf("%w: sex must be %q or %q", ErrInvalidInput, SexMale, SexFemale)
	}
	if birthDate.IsZero() {
		return "", fmt.Errorf("%w: birth date is required", ErrInvalidInput)
	}
	if sequence < 1 || sequence > MaxSequence {
		return "", fmt.Errorf("%w: sequence must be between 1 and %d", ErrInvalidInput, MaxSequence)
	}

	prefix, err := BasePattern(nationalID, sex, birthDate)
	if err != nil {
		return "", err
	}

	number := prefix + fmt.Sprintf("%04d", sequence)
	if len(number) != Length {
		return "", fmt.Errorf("%w: generated number has length %d", ErrInvalidInput, len(number))
	}
	return number, nil
}

// BasePattern returns the 10-digit prefix shared by every license number
// issued to holders with the same region code, birth date and sex.
func BasePattern(nationalID string, sex Sex, birthDate time.Time) (string, error) {
	if !isDigits(nationalID) || len(nationalID) != Length {
		return "", fmt.Errorf("%w: national ID must be exactly 16 digits", ErrInvalidInput)
	}
	if sex != SexMale && sex != SexFemale {
		return "", fmt.Errorf("%w: sex must be %q or %q", ErrInvalidInput, SexMale, SexFemale)
	}
	if birthDate.IsZero() {
		return "", fmt.Errorf("%w: birth date is required", ErrInvalidInput)
	}

	// Region code is carried through verbatim, never reinterpreted.
	region := nationalID[:6]

	day := birthDate.Day()
	if sex == SexFemale {
		day += femaleDayOffset
	}

	return fmt.Sprintf("%s%02d%02d%02d", region, day, int(birthDate.Month()), birthDate.Year()%100), nil
}

// Decode recovers the components of a license number. It is the inverse
// of Encode for every valid input.
func Decode(number string) (Parsed, error) {
	if !isDigits(number) || len(number) != Length {
		return Parsed{}, fmt.Errorf("%w: license number must be exactly 16 digits", ErrInvalidInput)
	}

	day, _ := strconv.Atoi(number[6:8])
	month, _ := strconv.Atoi(number[8:10])
	year, _ := strconv.Atoi(number[10:12])
	sequence, _ := strconv.Atoi(number[12:16])

	sex := SexMale
	if day > femaleDayOffset {
		sex = SexFemale
		day -= femaleDayOffset
	}

	return Parsed{
		Region:   number[:6],
		Day:      day,
		Month:    month,
		Year:     year,
		Sex:      sex,
		Sequence: sequence,
	}, nil
}

// IsValid reports whether number is a well-formed license number.
func IsValid(number string) bool {
	_, err := Decode(number)
	return err == nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
