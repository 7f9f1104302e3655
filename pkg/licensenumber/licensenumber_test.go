package licensenumber

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestEncodeMale(t *testing.T) {
	number, err := Encode("3201010101010001", SexMale, date(2001, 1, 1), 1)
	require.NoError(t, err)
	assert.Equal(t, "3201010101010001", number)
	assert.Len(t, number, Length)
}

func TestEncodeFemaleAddsDayOffset(t *testing.T) {
	number, err := Encode("3171234567890001", SexFemale, date(2004, 12, 31), 42)
	require.NoError(t, err)
	assert.Equal(t, "3171237112040042", number)
}

func TestEncodeInvalidInput(t *testing.T) {
	cases := []struct {
		name     string
		nik      string
		sex      Sex
		birth    time.Time
		sequence int
	}{
		{"short nik", "320101", SexMale, date(2001, 1, 1), 1},
		{"non numeric nik", "32010101010100ab", SexMale, date(2001, 1, 1), 1},
		{"unknown sex", "3201010101010001", Sex("other"), date(2001, 1, 1), 1},
		{"zero birth date", "3201010101010001", SexMale, time.Time{}, 1},
		{"sequence too low", "3201010101010001", SexMale, date(2001, 1, 1), 0},
		{"sequence too high", "3201010101010001", SexMale, date(2001, 1, 1), 10000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Encode(tc.nik, tc.sex, tc.birth, tc.sequence)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestDecodeSexFromDay(t *testing.T) {
	parsed, err := Decode("3201014503050123")
	require.NoError(t, err)
	assert.Equal(t, SexFemale, parsed.Sex)
	assert.Equal(t, 5, parsed.Day)
	assert.Equal(t, 3, parsed.Month)
	assert.Equal(t, 123, parsed.Sequence)

	parsed, err = Decode("3201013103050123")
	require.NoError(t, err)
	assert.Equal(t, SexMale, parsed.Sex)
	assert.Equal(t, 31, parsed.Day)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, number := range []string{"", "123", "320101010101000x", "32010101010100011"} {
		_, err := Decode(number)
		assert.ErrorIs(t, err, ErrInvalidInput, number)
	}
}

func TestBirthYearAssumesCurrentCentury(t *testing.T) {
	parsed, err := Decode("3201010101900001")
	require.NoError(t, err)
	assert.Equal(t, 90, parsed.Year)
	assert.Equal(t, 2090, parsed.BirthYear())
}

func TestRoundTrip(t *testing.T) {
	niks := []string{"3201010101010001", "3674012509980002", "1101019999999999"}
	dates := []time.Time{date(2001, 1, 1), date(2005, 2, 28), date(2010, 12, 31)}
	sequences := []int{1, 99, 9999}

	for _, nik := range niks {
		for _, birth := range dates {
			for _, sex := range []Sex{SexMale, SexFemale} {
				for _, seq := range sequences {
					name := fmt.Sprintf("%s/%s/%s/%d", nik, birth.Format("2006-01-02"), sex, seq)
					t.Run(name, func(t *testing.T) {
						number, err := Encode(nik, sex, birth, seq)
						require.NoError(t, err)
						require.Len(t, number, Length)

						parsed, err := Decode(number)
						require.NoError(t, err)
						assert.Equal(t, nik[:6], parsed.Region)
						assert.Equal(t, birth.Day(), parsed.Day)
						assert.Equal(t, int(birth.Month()), parsed.Month)
						assert.Equal(t, birth.Year()%100, parsed.Year)
						assert.Equal(t, sex, parsed.Sex)
						assert.Equal(t, seq, parsed.Sequence)
					})
				}
			}
		}
	}
}

func TestBasePatternIsEncodePrefix(t *testing.T) {
	number, err := Encode("3201011505030001", SexFemale, date(2003, 5, 15), 7)
	require.NoError(t, err)

	prefix, err := BasePattern("3201011505030001", SexFemale, date(2003, 5, 15))
	require.NoError(t, err)
	assert.Len(t, prefix, PrefixLength)
	assert.Equal(t, prefix, number[:PrefixLength])
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("3201010101010001"))
	assert.False(t, IsValid("not-a-number"))
	assert.False(t, IsValid("12345"))
}
