package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/predixlabs/crossarb/internal/arbitrage"
	"github.com/predixlabs/crossarb/pkg/types"
)

func testOpportunity(t *testing.T, profitPercent float64) *arbitrage.Opportunity {
	t.Helper()
	totalCost := decimal.NewFromFloat(100.0 / (100.0 + profitPercent))
	margin := decimal.NewFromInt(1).Sub(totalCost)
	return &arbitrage.Opportunity{
		ID: uuid.New().String(),
		Pair: types.CrossExchangePair{
			MarketA: types.Market{Venue: types.VenueKalshi, ID: "FED-25DEC", Title: "Fed cuts rates in December"},
			MarketB: types.Market{Venue: types.VenuePolymarket, ID: "0xfed", Title: "Will the Fed cut rates in December?"},
		},
		Best: arbitrage.Result{
			Legs: [2]arbitrage.Leg{
				{Venue: types.VenueKalshi, MarketID: "FED-25DEC", Side: types.SideYes, AskPrice: decimal.RequireFromString("0.46"), Fee: decimal.RequireFromString("0.01")},
				{Venue: types.VenuePolymarket, MarketID: "0xfed", Side: types.SideNo, AskPrice: decimal.RequireFromString("0.47"), Fee: decimal.RequireFromString("0.01")},
			},
			TotalCost:     totalCost,
			ProfitMargin:  margin,
			ProfitPercent: decimal.NewFromFloat(profitPercent),
			Valid:         true,
		},
		Alignment:  types.ResolutionAlignment{Score: 85, Level: "high", Tradeable: true},
		Confidence: 0.8,
		MaxSize:    250,
		DetectedAt: time.Now().UTC().Truncate(time.Second),
		TTL:        time.Minute,
	}
}

func TestPostgres_SaveOpportunity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newPostgresWithDB(db, zap.NewNop())
	opp := testOpportunity(t, 5.0)

	mock.ExpectExec("INSERT INTO opportunities").
		WithArgs(
			opp.ID, "kalshi", "FED-25DEC", "polymarket", "0xfed",
			"YES", "NO",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			85, 0.8, 250.0, opp.DetectedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.SaveOpportunity(context.Background(), opp))
	require.NoError(t, mock.ExpectationsWereMet())
}

func recordRows(recs ...*Record) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "venue_a", "market_a", "venue_b", "market_b",
		"side_a", "side_b", "ask_a", "ask_b", "fee_a", "fee_b",
		"total_cost", "profit_margin", "profit_percent",
		"resolution_score", "confidence", "max_size", "detected_at",
	})
	for _, r := range recs {
		rows.AddRow(
			r.ID, r.VenueA, r.MarketA, r.VenueB, r.MarketB,
			r.SideA, r.SideB, r.AskA, r.AskB, r.FeeA, r.FeeB,
			r.TotalCost, r.ProfitMargin, r.ProfitPercent,
			r.ResolutionScore, r.Confidence, r.MaxSize, r.DetectedAt,
		)
	}
	return rows
}

func TestPostgres_GetOpportunities(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newPostgresWithDB(db, zap.NewNop())
	rec := toRecord(testOpportunity(t, 5.0))

	mock.ExpectQuery("SELECT(.+)FROM opportunities(.+)ORDER BY profit_percent DESC").
		WithArgs(10).
		WillReturnRows(recordRows(rec))

	got, err := s.GetOpportunities(context.Background(), Query{Limit: 10, OrderBy: "profit"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.Equal(t, rec.ProfitPercent, got[0].ProfitPercent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetOpportunity_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := newPostgresWithDB(db, zap.NewNop())

	mock.ExpectQuery("SELECT(.+)FROM opportunities(.+)WHERE id").
		WithArgs("missing").
		WillReturnRows(recordRows())

	_, err = s.GetOpportunity(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsole_SaveAndQuery(t *testing.T) {
	s := NewConsoleStorage(zap.NewNop())
	defer s.Close()

	low := testOpportunity(t, 2.0)
	high := testOpportunity(t, 8.0)
	require.NoError(t, s.SaveOpportunity(context.Background(), low))
	require.NoError(t, s.SaveOpportunity(context.Background(), high))

	byProfit, err := s.GetOpportunities(context.Background(), Query{OrderBy: "profit"})
	require.NoError(t, err)
	require.Len(t, byProfit, 2)
	assert.Equal(t, high.ID, byProfit[0].ID)

	got, err := s.GetOpportunity(context.Background(), low.ID)
	require.NoError(t, err)
	assert.Equal(t, low.ID, got.ID)

	_, err = s.GetOpportunity(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConsole_RetentionBound(t *testing.T) {
	s := NewConsoleStorage(zap.NewNop())
	defer s.Close()

	// Silence the pretty-printer while filling past the retention bound.
	oldStdout := os.Stdout
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	os.Stdout = devNull
	for i := 0; i < consoleRetention+10; i++ {
		require.NoError(t, s.SaveOpportunity(context.Background(), testOpportunity(t, 1.0)))
	}
	os.Stdout = oldStdout
	devNull.Close()

	got, err := s.GetOpportunities(context.Background(), Query{Limit: consoleRetention * 2})
	require.NoError(t, err)
	assert.Len(t, got, consoleRetention)
}
