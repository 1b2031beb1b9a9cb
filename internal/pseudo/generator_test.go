package pseudo

import (
	"math/rand"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
)

func newTestGenerator() *Generator {
	return NewWithRand(rand.New(rand.NewSource(42)))
}

func TestGenerateIsConsistent(t *testing.T) {
	g := newTestGenerator()
	for _, typ := range entity.All {
		first := g.Generate("Иван Иванов", typ)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, g.Generate("Иван Иванов", typ), "type %s", typ)
		}
	}
	assert.Equal(t, len(entity.All), g.Len())
}

func TestGenerateKeysOnType(t *testing.T) {
	g := newTestGenerator()
	g.Generate("42", entity.SensitiveNumber)
	g.Generate("42", entity.Date)
	assert.Equal(t, 2, g.Len())
}

func TestReset(t *testing.T) {
	g := newTestGenerator()
	g.Generate("x", entity.Person)
	require.Equal(t, 1, g.Len())
	g.Reset()
	assert.Equal(t, 0, g.Len())
}

func TestGenerateFormats(t *testing.T) {
	g := newTestGenerator()
	tests := []struct {
		typ     entity.Type
		pattern string
	}{
		{entity.SensitiveNumber, `^[1-9]\d{7}$`},
		{entity.Phone, `^\+7\(9\d{2}\)\d{7}$`},
		{entity.Email, `^[a-z]+\.[a-z]+\d{1,2}@[a-z.]+$`},
		{entity.Contact, `^[a-z]+\.[a-z]+\d{1,2}@[a-z.]+$`},
		{entity.URL, `^[a-z]+-[a-z]+\.[a-z]+$`},
		{entity.Date, `^\d{2}\.\d{2}\.\d{4}$`},
		{entity.Person, `^\p{Lu}\p{Ll}+ \p{Lu}\p{Ll}+$`},
		{entity.Organization, `^\p{Lu}+ «\p{Lu}\p{Ll}+»$`},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			for i := 0; i < 20; i++ {
				out := g.Generate(tt.typ.String()+string(rune('a'+i)), tt.typ)
				assert.Regexp(t, regexp.MustCompile(tt.pattern), out)
			}
		})
	}
}

func TestGeneratedDateParses(t *testing.T) {
	g := newTestGenerator()
	for i := 0; i < 50; i++ {
		out := g.Generate(time.Now().Add(time.Duration(i)*time.Hour).String(), entity.Date)
		d, err := time.Parse(DateLayout, out)
		require.NoError(t, err)
		assert.False(t, d.Before(minDate))
		assert.False(t, d.After(maxDate))
	}
}

func TestSameSeedSameOutput(t *testing.T) {
	a, b := newTestGenerator(), newTestGenerator()
	for _, typ := range entity.All {
		assert.Equal(t, a.Generate("v", typ), b.Generate("v", typ))
	}
}
