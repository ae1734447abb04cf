package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argstats-api/internal/model"
	"argstats-api/pkg/reconcile"
)

func mapWith(t *testing.T, series string, raw reconcile.Raw) (reconcile.Record, error) {
	t.Helper()
	m, ok := MapperFor(series)
	require.True(t, ok, "mapper for %s", series)
	return m.Map(raw)
}

func TestMapDollar(t *testing.T) {
	tests := []struct {
		name     string
		raw      reconcile.Raw
		wantKey  string
		wantDate time.Time
		reason   reconcile.RejectReason
	}{
		{
			name:     "sheet stamp with time",
			raw:      reconcile.Raw{"casa": "blue", "compra": "1290", "venta": "1310", "fechaActualizacion": "12/7/2025 18:10:47"},
			wantKey:  "BLUE|2025-07-12T18:10:47.000Z",
			wantDate: time.Date(2025, 7, 12, 18, 10, 47, 0, time.UTC),
		},
		{
			name:     "sheet date without time closes at 18hs local",
			raw:      reconcile.Raw{"casa": "Bolsa", "venta": "1250,5", "fechaActualizacion": "13/7/2025"},
			wantKey:  "MEP|2025-07-13T21:00:00.000Z",
			wantDate: time.Date(2025, 7, 13, 21, 0, 0, 0, time.UTC),
		},
		{
			name:     "api stamp",
			raw:      reconcile.Raw{"casa": "contadoconliqui", "compra": 1300.5, "fechaActualizacion": "2025-07-12T15:00:00.000-03:00"},
			wantKey:  "CCL|2025-07-12T18:00:00.000Z",
			wantDate: time.Date(2025, 7, 12, 18, 0, 0, 0, time.UTC),
		},
		{name: "unknown casa", raw: reconcile.Raw{"casa": "euro", "compra": "1", "fechaActualizacion": "13/7/2025"}, reason: reconcile.ReasonUnknownCode},
		{name: "missing casa", raw: reconcile.Raw{"compra": "1", "fechaActualizacion": "13/7/2025"}, reason: reconcile.ReasonMissingField},
		{name: "bad date", raw: reconcile.Raw{"casa": "oficial", "compra": "1", "fechaActualizacion": "not-a-date"}, reason: reconcile.ReasonInvalidDate},
		{name: "no prices", raw: reconcile.Raw{"casa": "oficial", "compra": "-", "fechaActualizacion": "13/7/2025"}, reason: reconcile.ReasonMissingField},
		{name: "garbage price", raw: reconcile.Raw{"casa": "oficial", "compra": "abc", "fechaActualizacion": "13/7/2025"}, reason: reconcile.ReasonInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := mapWith(t, model.SeriesDollars.Series, tt.raw)
			if tt.reason != "" {
				require.Error(t, err)
				assert.Equal(t, tt.reason, reconcile.ReasonOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, rec.Key)
			assert.True(t, rec.Date.Equal(tt.wantDate), "date %s", rec.Date)
		})
	}
}

func TestMapDollarKeepsNullPrice(t *testing.T) {
	rec, err := mapWith(t, model.SeriesDollars.Series, reconcile.Raw{"casa": "oficial", "venta": "1250", "fechaActualizacion": "13/7/2025"})
	require.NoError(t, err)
	assert.False(t, rec.Values["buy_price"].Valid)
	assert.Equal(t, "1250", rec.Values["sell_price"].Decimal.String())
	assert.Equal(t, "OFICIAL", rec.Dimensions["dollar_type"])
}

func TestMapEMBI(t *testing.T) {
	rec, err := mapWith(t, model.SeriesEMBI.Series, reconcile.Raw{"id": "row-42", "fecha": "1/7/2025", "valor": "702"})
	require.NoError(t, err)
	assert.Equal(t, "row-42", rec.Key)
	assert.Equal(t, "row-42", rec.Dimensions[model.ColumnExternalID])
	assert.Equal(t, "2025-07-01", reconcile.DateKey(rec.Date))

	_, err = mapWith(t, model.SeriesEMBI.Series, reconcile.Raw{"fecha": "1/7/2025", "valor": "702"})
	assert.Equal(t, reconcile.ReasonMissingField, reconcile.ReasonOf(err))
}

func TestMapIndex(t *testing.T) {
	for _, name := range []string{model.SeriesCER.Series, model.SeriesUVA.Series} {
		rec, err := mapWith(t, name, reconcile.Raw{"fecha": "2025-07-10", "valor": "1473.2671"})
		require.NoError(t, err)
		assert.Equal(t, "2025-07-10", rec.Key)
		assert.Equal(t, "1473.2671", rec.Values["value"].Decimal.String())
	}
}

func TestMapLaborMarket(t *testing.T) {
	rec, err := mapWith(t, model.SeriesLaborMarket.Series, reconcile.Raw{
		"fecha":          "2024-T2",
		"region":         "Noreste",
		"genero":         "Mujeres",
		"grupo_edad":     "14 a 29",
		"tasa_actividad": "44,1",
		"archivo":        "mercado_trabajo_eph_2t24.xls",
		"tipo":           "demografico",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01|NEA|female|14 a 29|total", rec.Key)
	assert.Equal(t, reconcile.DataTypeDemographic, rec.DataType)
	assert.Equal(t, "mercado_trabajo_eph_2t24.xls", rec.SourceFile)
	assert.False(t, rec.Values["unemployment_rate"].Valid)

	_, err = mapWith(t, model.SeriesLaborMarket.Series, reconcile.Raw{"fecha": "2024-T2", "region": "Atlantida", "tasa_actividad": "1"})
	assert.Equal(t, reconcile.ReasonUnknownCode, reconcile.ReasonOf(err))

	_, err = mapWith(t, model.SeriesLaborMarket.Series, reconcile.Raw{"fecha": "2024-T2", "tipo": "mensual", "tasa_actividad": "1"})
	assert.Equal(t, reconcile.ReasonUnknownCode, reconcile.ReasonOf(err))
}

func TestMapPoverty(t *testing.T) {
	rec, err := mapWith(t, model.SeriesPoverty.Series, reconcile.Raw{
		"periodo":          "2024-07-01",
		"pobreza_personas": "38,1",
		"pobreza_hogares":  "28,6",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-07-01|TOTAL", rec.Key)
	assert.Equal(t, "38.1", rec.Values["poverty_rate_persons"].Decimal.String())
	assert.False(t, rec.Values["indigence_rate_households"].Valid)
	assert.Empty(t, rec.DataType)
}

func TestMapperForUnknownSeries(t *testing.T) {
	_, ok := MapperFor("bitcoin")
	assert.False(t, ok)
}
