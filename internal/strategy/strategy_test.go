package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/dataset"
	"github.com/GoogleCloudPlatform/db-pii-anonymizer/internal/entity"
)

func TestParseOverride(t *testing.T) {
	tests := []struct {
		token   string
		want    Strategy
		wantErr bool
	}{
		{"skip", Strategy{Kind: Skip}, false},
		{"Classify", Strategy{Kind: Classify}, false},
		{"TEXT", Strategy{Kind: Classify}, false},
		{"model", Strategy{Kind: Classify}, false},
		{"EMAIL", Strategy{Kind: Generate, Entity: entity.Email}, false},
		{"per", Strategy{Kind: Generate, Entity: entity.Person}, false},
		{"SENSITIVE", Strategy{Kind: Generate, Entity: entity.SensitiveNumber}, false},
		{"BLOB", Strategy{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseOverride(tt.token)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDefaults(t *testing.T) {
	tests := []struct {
		rawType string
		want    Strategy
	}{
		{"character varying(255)", Strategy{Kind: Classify}},
		{"text", Strategy{Kind: Classify}},
		{"date", Strategy{Kind: Generate, Entity: entity.Date}},
		{"integer", Strategy{Kind: Generate, Entity: entity.SensitiveNumber}},
		{"numeric(10,2)", Strategy{Kind: Generate, Entity: entity.SensitiveNumber}},
		{"double precision", Strategy{Kind: Generate, Entity: entity.SensitiveNumber}},
		{"jsonb", Strategy{Kind: Skip}},
		{"boolean", Strategy{Kind: Skip}},
	}
	for _, tt := range tests {
		t.Run(tt.rawType, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(dataset.NewColumn("c", tt.rawType), ""))
		})
	}
}

func TestResolveOverrides(t *testing.T) {
	col := dataset.NewColumn("salary", "integer")
	assert.Equal(t, Strategy{Kind: Skip}, Resolve(col, "skip"))
	assert.Equal(t, Strategy{Kind: Generate, Entity: entity.SensitiveNumber}, Resolve(col, "bogus"))

	col.ExplicitStrategy = "PHONE"
	assert.Equal(t, Strategy{Kind: Generate, Entity: entity.Phone}, Resolve(col, ""))
	assert.Equal(t, Strategy{Kind: Classify}, Resolve(col, "classify"))
}

func TestBuildMap(t *testing.T) {
	columns := []dataset.ColumnDescriptor{
		dataset.NewColumn("id", "integer"),
		dataset.NewColumn("name", "varchar"),
		dataset.NewColumn("email", "varchar"),
		dataset.NewColumn("born", "date"),
	}
	m := BuildMap(columns, []string{"name", "email", "born"}, map[string]string{"email": "EMAIL", "ghost": "skip"})

	assert.Equal(t, Strategy{Kind: Skip}, m["id"])
	assert.Equal(t, Strategy{Kind: Classify}, m["name"])
	assert.Equal(t, Strategy{Kind: Generate, Entity: entity.Email}, m["email"])
	assert.Equal(t, Strategy{Kind: Generate, Entity: entity.Date}, m["born"])
	assert.Equal(t, []string{"born", "email"}, m.Columns(Generate))
	assert.Equal(t, []string{"name"}, m.Columns(Classify))
	assert.Equal(t, Strategy{Kind: Skip}, m.Get("missing"))
	assert.Len(t, m, 4)
}

func TestBuildMapWithoutInclude(t *testing.T) {
	columns := []dataset.ColumnDescriptor{dataset.NewColumn("id", "integer"), dataset.NewColumn("bio", "text")}
	m := BuildMap(columns, nil, nil)
	assert.Equal(t, Generate, m["id"].Kind)
	assert.Equal(t, Classify, m["bio"].Kind)
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "skip", Strategy{}.String())
	assert.Equal(t, "classify", Strategy{Kind: Classify}.String())
	assert.Equal(t, "DATE", Strategy{Kind: Generate, Entity: entity.Date}.String())
}
