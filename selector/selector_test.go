package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/splatctl/config"
)

var sample = []config.Database{
	{Name: "A", Tags: []string{"x", "y"}},
	{Name: "B", Tags: []string{"x"}},
	{Name: "C", Tags: []string{"y"}},
}

func TestSelect(t *testing.T) {
	dbs := append([]config.Database{}, sample...)
	dbs = append(dbs, config.Database{Name: "D", Tags: []string{"default"}})

	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{
			name:     "all mode requires every tag",
			criteria: Criteria{Tags: []string{"x", "y"}, Mode: MatchAll},
			want:     []string{"A"},
		},
		{
			name:     "any mode keeps configuration order",
			criteria: Criteria{Tags: []string{"y", "x"}, Mode: MatchAny},
			want:     []string{"A", "B", "C"},
		},
		{
			name:     "explicit names in configuration order",
			criteria: Criteria{Databases: []string{"C", "A"}},
			want:     []string{"A", "C"},
		},
		{
			name:     "explicit names unioned with tags without duplicates",
			criteria: Criteria{Databases: []string{"C"}, Tags: []string{"y"}, Mode: MatchAll},
			want:     []string{"C", "A"},
		},
		{
			name:     "unknown names are ignored",
			criteria: Criteria{Databases: []string{"nope"}},
			want:     nil,
		},
		{
			name:     "tags are case-sensitive",
			criteria: Criteria{Tags: []string{"X"}, Mode: MatchAny},
			want:     nil,
		},
		{
			name:     "custom default tag",
			criteria: Criteria{DefaultTag: "x"},
			want:     []string{"A", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(dbs, tt.criteria)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, Names(got))
		})
	}
}

func TestSelectDefaultTagFallback(t *testing.T) {
	dbs := []config.Database{
		{Name: "P", Tags: []string{"default", "prod"}},
		{Name: "Q", Tags: []string{"qa"}},
		{Name: "R", Tags: []string{"default"}},
	}

	fallback := Select(dbs, Criteria{Mode: MatchAll})
	explicit := Select(dbs, Criteria{Tags: []string{"default"}, Mode: MatchAll})

	assert.Equal(t, []string{"P", "R"}, Names(fallback))
	assert.Equal(t, explicit, fallback)
}

func TestSelectIsRepeatable(t *testing.T) {
	c := Criteria{Databases: []string{"B"}, Tags: []string{"y"}, Mode: MatchAny}
	first := Select(sample, c)
	second := Select(sample, c)
	assert.Equal(t, first, second)
}

func TestSelectEmptyConfiguration(t *testing.T) {
	assert.Empty(t, Select(nil, Criteria{}))
}

func TestParseMatchMode(t *testing.T) {
	tests := []struct {
		in      string
		want    MatchMode
		wantErr bool
	}{
		{"", MatchAll, false},
		{"all", MatchAll, false},
		{"ANY", MatchAny, false},
		{" any ", MatchAny, false},
		{"some", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMatchMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnknown(t *testing.T) {
	assert.Equal(t, []string{"Z"}, Unknown(sample, []string{"A", "Z"}))
	assert.Empty(t, Unknown(sample, []string{"A", "B"}))
}
