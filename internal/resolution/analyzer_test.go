package resolution

import (
	"testing"

	"github.com/predixlabs/crossarb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := New(Config{})
	require.NoError(t, err)
	return a
}

func market(id, resolution string) types.Market {
	return types.Market{Venue: types.VenueKalshi, ID: id, ResolutionText: resolution}
}

func TestNew_ThresholdRange(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		wantErr   bool
	}{
		{name: "default", threshold: 0, wantErr: false},
		{name: "valid-custom", threshold: 80, wantErr: false},
		{name: "upper-bound", threshold: 100, wantErr: false},
		{name: "above-range", threshold: 101, wantErr: true},
		{name: "negative", threshold: -5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{MinThreshold: tt.threshold})
			if tt.wantErr {
				var cerr *types.ConfigurationError
				assert.ErrorAs(t, err, &cerr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCompare_AlignedMarkets(t *testing.T) {
	a := newAnalyzer(t)

	m1 := market("k-1", "Resolves yes if the Associated Press calls the race by January 5, 2026.")
	m2 := market("p-1", "Will resolve YES if AP reports a winner on January 5, 2026.")

	alignment := a.Compare(m1, m2)

	assert.True(t, alignment.SourcesMatch, "AP should canonicalize to Associated Press")
	assert.True(t, alignment.TimingMatch)
	assert.True(t, alignment.ConditionsMatch)
	assert.Equal(t, 100, alignment.Score)
	assert.True(t, alignment.Tradeable)
	assert.Empty(t, alignment.Risks)
}

func TestCompare_SourceMismatchIsRisk(t *testing.T) {
	a := newAnalyzer(t)

	m1 := market("k-1", "Resolution source: Reuters.")
	m2 := market("p-1", "Resolution source: Bloomberg.")

	alignment := a.Compare(m1, m2)

	assert.False(t, alignment.SourcesMatch)
	assert.NotEmpty(t, alignment.Risks)
	assert.False(t, alignment.Tradeable)
}

func TestCompare_DateMismatchIsRisk(t *testing.T) {
	a := newAnalyzer(t)

	m1 := market("k-1", "Settles on 2026-03-01 per Reuters.")
	m2 := market("p-1", "Settles on 2026-03-15 per Reuters.")

	alignment := a.Compare(m1, m2)

	assert.False(t, alignment.TimingMatch)
	assert.False(t, alignment.Tradeable)
}

func TestCompare_MissingDateTreatedAsMatch(t *testing.T) {
	a := newAnalyzer(t)

	m1 := market("k-1", "Settles on March 1, 2026 per Reuters.")
	m2 := market("p-1", "Settles per Reuters.")

	alignment := a.Compare(m1, m2)

	assert.True(t, alignment.TimingMatch)
}

func TestCompare_Symmetric(t *testing.T) {
	a := newAnalyzer(t)

	pairs := [][2]types.Market{
		{
			market("k-1", "Resolves yes if AP calls the race by January 5, 2026."),
			market("p-1", "Will resolve YES if Bloomberg reports by 2026-02-01."),
		},
		{
			market("k-2", "CPI above 3.5% per Bureau of Labor Statistics."),
			market("p-2", "Resolves yes if BLS reports CPI above 3.5%."),
		},
		{
			market("k-3", ""),
			market("p-3", "Settles per Reuters on 2026-06-30."),
		},
	}

	for _, pair := range pairs {
		forward := a.Compare(pair[0], pair[1])
		reverse := a.Compare(pair[1], pair[0])
		assert.Equal(t, forward.Score, reverse.Score)
		assert.Equal(t, forward.Tradeable, reverse.Tradeable)
	}
}

func TestFinalize_RisksVetoRegardlessOfScore(t *testing.T) {
	a := newAnalyzer(t)

	// Score 70 over a threshold of 65: tradeable with no risks.
	clean := a.finalize(70, nil, nil)
	assert.Equal(t, 70, clean.Score)
	assert.True(t, clean.Tradeable)

	// Same score with one outstanding risk must not be tradeable.
	risky := a.finalize(70, []string{"resolution sources differ"}, nil)
	assert.Equal(t, 70, risky.Score)
	assert.False(t, risky.Tradeable)
}

func TestFinalize_ThresholdGate(t *testing.T) {
	a, err := New(Config{MinThreshold: 65})
	require.NoError(t, err)

	assert.False(t, a.finalize(64, nil, nil).Tradeable)
	assert.True(t, a.finalize(65, nil, nil).Tradeable)
}

func TestCompare_CustomSourceAlias(t *testing.T) {
	a, err := New(Config{SourceAliases: map[string]string{
		"opta": "opta sports",
	}})
	require.NoError(t, err)

	m1 := market("k-1", "Settled using Opta data.")
	m2 := market("p-1", "Resolution source: opta.")

	alignment := a.Compare(m1, m2)
	assert.True(t, alignment.SourcesMatch)
}
