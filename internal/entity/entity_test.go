package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"PERSON", Person, false},
		{"per", Person, false},
		{" LOC ", Location, false},
		{"CONTACTS", Contact, false},
		{"SENSITIVE", SensitiveNumber, false},
		{"sensitive_number", SensitiveNumber, false},
		{"TEXT", GenericText, false},
		{"url", URL, false},
		{"nonsense", Unknown, true},
		{"", Unknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypeTextRoundTrip(t *testing.T) {
	for _, typ := range All {
		b, err := typ.MarshalText()
		require.NoError(t, err)
		var back Type
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, typ, back)
	}
}

func TestSetContains(t *testing.T) {
	var empty Set
	assert.True(t, empty.Contains(Person), "empty set means every type")

	s, errs := ParseSet([]string{"PER", "bogus", "", "DATE"})
	assert.Len(t, errs, 1)
	assert.True(t, s.Contains(Person))
	assert.True(t, s.Contains(Date))
	assert.False(t, s.Contains(Location))
}

func TestSpanValid(t *testing.T) {
	text := "Иван ok"
	tests := []struct {
		name string
		span Span
		want bool
	}{
		{"whole cyrillic word", Span{0, 8, Person}, true},
		{"splits a rune", Span{0, 3, Person}, false},
		{"empty", Span{2, 2, Person}, false},
		{"past end", Span{9, 20, Person}, false},
		{"negative", Span{-1, 2, Person}, false},
		{"ascii tail", Span{9, 11, Person}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.span.Valid(text))
		})
	}
}

func TestSpanOverlaps(t *testing.T) {
	assert.True(t, Span{0, 5, Person}.Overlaps(Span{4, 6, Date}))
	assert.False(t, Span{0, 5, Person}.Overlaps(Span{5, 6, Date}))
}
