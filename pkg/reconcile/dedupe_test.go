package reconcile

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func num(s string) decimal.NullDecimal {
	return Some(decimal.RequireFromString(s))
}

func laborRecord(region string, values map[string]decimal.NullDecimal) Record {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return Record{
		Key:        NaturalKey(DateKey(date), region, "total", "total", "total"),
		Date:       date,
		Dimensions: map[string]string{"region": region},
		Values:     values,
		SourceFile: UnknownSource,
		DataType:   DataTypeNational,
	}
}

func TestMergeFillsGapsWithoutLosingFields(t *testing.T) {
	a := laborRecord("GBA", map[string]decimal.NullDecimal{"activity_rate": num("5.2"), "employment_rate": Null()})
	b := laborRecord("GBA", map[string]decimal.NullDecimal{"activity_rate": Null(), "employment_rate": num("41.3")})

	got := Merge(a, b)

	want := map[string]decimal.NullDecimal{"activity_rate": num("5.2"), "employment_rate": num("41.3")}
	if diff := cmp.Diff(want, got.Values, decimalComparer); diff != "" {
		t.Fatalf("merged values mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, a.Values["employment_rate"].Valid, "merge must not mutate its inputs")
}

func TestMergeFirstNonNullWins(t *testing.T) {
	a := laborRecord("GBA", map[string]decimal.NullDecimal{"value": num("10")})
	b := laborRecord("GBA", map[string]decimal.NullDecimal{"value": num("20")})

	got := Merge(a, b)

	v, ok := got.Value("value")
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(10)))
}

func TestMergeIncomingNullNeverClobbers(t *testing.T) {
	a := laborRecord("GBA", map[string]decimal.NullDecimal{"value": num("10")})
	b := laborRecord("GBA", map[string]decimal.NullDecimal{"value": Null(), "extra": Null()})

	got := Merge(a, b)

	assert.True(t, got.Values["value"].Valid)
	_, present := got.Values["extra"]
	assert.True(t, present, "fields only known to the incoming record are kept")
}

func TestMergeProvenanceTiebreaks(t *testing.T) {
	base := laborRecord("GBA", nil)

	tests := []struct {
		name       string
		existing   Record
		incoming   Record
		wantSource string
		wantType   DataType
	}{
		{
			name:       "known source replaces unknown",
			existing:   base,
			incoming:   Record{Key: base.Key, SourceFile: "eph_2024q1.csv"},
			wantSource: "eph_2024q1.csv",
			wantType:   DataTypeNational,
		},
		{
			name:       "unknown source does not replace",
			existing:   Record{Key: base.Key, SourceFile: "a.csv", DataType: DataTypeRegional},
			incoming:   Record{Key: base.Key, SourceFile: UnknownSource, DataType: DataTypeNational},
			wantSource: "a.csv",
			wantType:   DataTypeRegional,
		},
		{
			name:       "later known source wins",
			existing:   Record{Key: base.Key, SourceFile: "a.csv"},
			incoming:   Record{Key: base.Key, SourceFile: "b.csv"},
			wantSource: "b.csv",
		},
		{
			name:       "more specific data type wins",
			existing:   Record{Key: base.Key, DataType: DataTypeRegional},
			incoming:   Record{Key: base.Key, DataType: DataTypeDemographic},
			wantType:   DataTypeDemographic,
		},
		{
			name:       "empty incoming keeps existing",
			existing:   Record{Key: base.Key, SourceFile: "a.csv", DataType: DataTypeDemographic},
			incoming:   Record{Key: base.Key},
			wantSource: "a.csv",
			wantType:   DataTypeDemographic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.existing, tt.incoming)
			assert.Equal(t, tt.wantSource, got.SourceFile)
			assert.Equal(t, tt.wantType, got.DataType)
		})
	}
}

func TestDedupeFoldsInOrder(t *testing.T) {
	gba1 := laborRecord("GBA", map[string]decimal.NullDecimal{"activity_rate": num("5.2"), "employment_rate": Null()})
	cuyo := laborRecord("Cuyo", map[string]decimal.NullDecimal{"activity_rate": num("4.0")})
	gba2 := laborRecord("GBA", map[string]decimal.NullDecimal{"activity_rate": num("9.9"), "employment_rate": num("41.3")})
	gba3 := laborRecord("GBA", map[string]decimal.NullDecimal{"employment_rate": num("1")})

	res := Dedupe([]Record{gba1, cuyo, gba2, gba3})

	require.Len(t, res.Records, 2)
	assert.Equal(t, 2, res.Folded)
	assert.Equal(t, []string{gba1.Key, cuyo.Key}, Keys(res.Records))

	want := map[string]decimal.NullDecimal{"activity_rate": num("5.2"), "employment_rate": num("41.3")}
	if diff := cmp.Diff(want, res.Records[0].Values, decimalComparer); diff != "" {
		t.Fatalf("folded values mismatch (-want +got):\n%s", diff)
	}
}

func TestDedupeIsDeterministic(t *testing.T) {
	input := []Record{
		laborRecord("GBA", map[string]decimal.NullDecimal{"a": num("1")}),
		laborRecord("NOA", map[string]decimal.NullDecimal{"a": Null()}),
		laborRecord("GBA", map[string]decimal.NullDecimal{"a": num("2"), "b": num("3")}),
		laborRecord("NOA", map[string]decimal.NullDecimal{"a": num("7")}),
	}

	first := Dedupe(input)
	for i := 0; i < 10; i++ {
		again := Dedupe(input)
		if diff := cmp.Diff(first, again, decimalComparer); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestDedupeEmpty(t *testing.T) {
	res := Dedupe(nil)
	assert.Empty(t, res.Records)
	assert.Zero(t, res.Folded)
}
