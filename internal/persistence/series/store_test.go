package series_test

import (
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"argstats-api/internal/model"
	"argstats-api/internal/persistence/series"
	"argstats-api/pkg/reconcile"
)

func dec(s string) decimal.NullDecimal {
	return reconcile.Some(decimal.RequireFromString(s))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func laborRecord(date time.Time, region string, activity, employment decimal.NullDecimal) reconcile.Record {
	dims := map[string]string{"region": region, "gender": "total", "age_group": "total", "demographic_segment": "total"}
	return reconcile.Record{
		Key:        reconcile.NaturalKey(reconcile.DateKey(date), region, "total", "total", "total"),
		Date:       date,
		Dimensions: dims,
		Values: map[string]decimal.NullDecimal{
			"activity_rate":   activity,
			"employment_rate": employment,
		},
		SourceFile: reconcile.UnknownSource,
		DataType:   reconcile.DataTypeNational,
	}
}

func dollarRecord(kind string, at time.Time, buy, sell string) reconcile.Record {
	return reconcile.Record{
		Key:        reconcile.NaturalKey(kind, reconcile.InstantKey(at)),
		Date:       at,
		Dimensions: map[string]string{"dollar_type": kind},
		Values:     map[string]decimal.NullDecimal{"buy_price": dec(buy), "sell_price": dec(sell)},
	}
}

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *series.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		store, err = series.Open(ctx, series.Conf{
			Driver:      "sqlite",
			DSN:         filepath.Join(GinkgoT().TempDir(), "argstats.db"),
			AutoMigrate: true,
		})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(store.Close)
	})

	Describe("Upsert", func() {
		var labor *series.Table

		BeforeEach(func() {
			labor = store.MustTable(model.SeriesLaborMarket.Series)
		})

		It("inserts new rows and reports them", func() {
			res, err := labor.Upsert(ctx, []reconcile.Record{
				laborRecord(day(2024, 1, 1), "GBA", dec("48.2"), reconcile.Null()),
				laborRecord(day(2024, 1, 1), "NOA", dec("44.1"), dec("40.0")),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(series.WriteResult{Inserted: 2}))
		})

		It("is idempotent when re-run with the same batch", func() {
			batch := []reconcile.Record{
				laborRecord(day(2024, 1, 1), "GBA", dec("48.2"), reconcile.Null()),
				laborRecord(day(2024, 4, 1), "GBA", dec("48.9"), dec("44.0")),
			}
			_, err := labor.Upsert(ctx, batch)
			Expect(err).NotTo(HaveOccurred())

			res, err := labor.Upsert(ctx, batch)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Inserted).To(BeZero())
			Expect(res.Updated).To(BeZero())
			Expect(res.Skipped()).To(Equal(2))
		})

		It("fills stored gaps without letting nulls clobber values", func() {
			_, err := labor.Upsert(ctx, []reconcile.Record{laborRecord(day(2024, 1, 1), "GBA", dec("48.2"), reconcile.Null())})
			Expect(err).NotTo(HaveOccurred())

			res, err := labor.Upsert(ctx, []reconcile.Record{laborRecord(day(2024, 1, 1), "GBA", reconcile.Null(), dec("41.3"))})
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(series.WriteResult{Updated: 1}))

			page, err := labor.Query(ctx, series.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Points).To(HaveLen(1))
			Expect(page.Points[0].Values["activity_rate"].Decimal.String()).To(Equal("48.2"))
			Expect(page.Points[0].Values["employment_rate"].Decimal.String()).To(Equal("41.3"))
		})

		It("keeps known provenance over unknown", func() {
			first := laborRecord(day(2024, 1, 1), "GBA", dec("48.2"), reconcile.Null())
			first.SourceFile = "eph_t1_2024.csv"
			first.DataType = reconcile.DataTypeRegional
			_, err := labor.Upsert(ctx, []reconcile.Record{first})
			Expect(err).NotTo(HaveOccurred())

			res, err := labor.Upsert(ctx, []reconcile.Record{laborRecord(day(2024, 1, 1), "GBA", dec("48.2"), reconcile.Null())})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Unchanged).To(Equal(1))

			page, err := labor.Query(ctx, series.Query{})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Points[0].SourceFile).To(Equal("eph_t1_2024.csv"))
			Expect(page.Points[0].DataType).To(Equal("regional"))
		})

		It("absorbs rows refused by the composite key as conflicts", func() {
			_, err := store.Conn().ExecCtx(ctx, `INSERT INTO labor_market
				(natural_key, date, region, gender, age_group, demographic_segment)
				VALUES ('legacy-key', '2024-01-01', 'GBA', 'total', 'total', 'total')`)
			Expect(err).NotTo(HaveOccurred())

			res, err := labor.Upsert(ctx, []reconcile.Record{
				laborRecord(day(2024, 1, 1), "GBA", dec("48.2"), reconcile.Null()),
				laborRecord(day(2024, 1, 1), "NEA", dec("40.0"), reconcile.Null()),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(series.WriteResult{Inserted: 1, Conflicts: 1}))
		})
	})

	Describe("external id tables", func() {
		var embi *series.Table

		embiRecord := func(id string, date time.Time, value string) reconcile.Record {
			return reconcile.Record{
				Key:        id,
				Date:       date,
				Dimensions: map[string]string{model.ColumnExternalID: id},
				Values:     map[string]decimal.NullDecimal{"value": dec(value)},
			}
		}

		BeforeEach(func() {
			embi = store.MustTable(model.SeriesEMBI.Series)
		})

		It("never rewrites an existing id", func() {
			_, err := embi.Upsert(ctx, []reconcile.Record{embiRecord("e1", day(2025, 7, 1), "700")})
			Expect(err).NotTo(HaveOccurred())

			res, err := embi.Upsert(ctx, []reconcile.Record{
				embiRecord("e1", day(2025, 7, 1), "999"),
				embiRecord("e2", day(2025, 7, 2), "710"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(series.WriteResult{Inserted: 1, Unchanged: 1}))

			page, err := embi.Query(ctx, series.Query{Desc: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Total).To(Equal(2))
			Expect(page.Points[1].Values["value"].Decimal.String()).To(Equal("700"))
		})

		It("answers existence lookups", func() {
			_, err := embi.Upsert(ctx, []reconcile.Record{
				embiRecord("e1", day(2025, 7, 1), "700"),
				embiRecord("e2", day(2025, 7, 2), "710"),
			})
			Expect(err).NotTo(HaveOccurred())

			found, err := embi.ExistingKeys(ctx, []string{"e0", "e2", "e1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(Equal([]string{"e2", "e1"}))

			all, err := embi.AllKeys(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(ConsistOf("e1", "e2"))

			empty, err := embi.ExistingKeys(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(empty).To(BeEmpty())
		})
	})

	Describe("Query", func() {
		var dollars *series.Table

		BeforeEach(func() {
			dollars = store.MustTable(model.SeriesDollars.Series)
			base := time.Date(2025, 7, 10, 18, 0, 0, 0, time.UTC)
			_, err := dollars.Upsert(ctx, []reconcile.Record{
				dollarRecord("OFICIAL", base, "1200", "1250"),
				dollarRecord("OFICIAL", base.AddDate(0, 0, 1), "1210", "1260"),
				dollarRecord("BLUE", base, "1290", "1310"),
				dollarRecord("BLUE", base.AddDate(0, 0, 2), "1300", "1320"),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the newest point per dimension group", func() {
			page, err := dollars.Query(ctx, series.Query{Latest: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Points).To(HaveLen(2))
			byType := map[string]string{}
			for _, p := range page.Points {
				byType[p.Dimensions["dollar_type"]] = reconcile.InstantKey(p.Date)
			}
			Expect(byType).To(Equal(map[string]string{
				"OFICIAL": "2025-07-11T18:00:00.000Z",
				"BLUE":    "2025-07-12T18:00:00.000Z",
			}))
		})

		It("filters by inclusive day range and dimension", func() {
			page, err := dollars.Query(ctx, series.Query{
				Start:   day(2025, 7, 11),
				End:     day(2025, 7, 12),
				Filters: map[string]string{"dollar_type": "BLUE"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Points).To(HaveLen(1))
			Expect(page.Points[0].Values["sell_price"].Decimal.String()).To(Equal("1320"))
		})

		It("paginates and orders", func() {
			page, err := dollars.Query(ctx, series.Query{Limit: 2, Offset: 1, Desc: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Total).To(Equal(4))
			Expect(page.Points).To(HaveLen(2))
			Expect(page.Points[0].Date).To(BeTemporally("==", time.Date(2025, 7, 11, 18, 0, 0, 0, time.UTC)))
		})

		It("rejects unknown filters", func() {
			_, err := dollars.Query(ctx, series.Query{Filters: map[string]string{"casa": "x"}})
			Expect(err).To(MatchError(ContainSubstring("unknown filter")))
		})

		It("summarises coverage", func() {
			meta, err := dollars.Metadata(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(meta.Count).To(Equal(4))
			Expect(meta.First).To(BeTemporally("==", time.Date(2025, 7, 10, 18, 0, 0, 0, time.UTC)))
			Expect(meta.Last).To(BeTemporally("==", time.Date(2025, 7, 12, 18, 0, 0, 0, time.UTC)))
			Expect(meta.LastUpdated.IsZero()).To(BeFalse())

			empty, err := store.MustTable("cer").Metadata(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(empty.Count).To(BeZero())
			Expect(empty.First.IsZero()).To(BeTrue())
		})
	})

	Describe("AuditLog", func() {
		It("records and lists executions newest first", func() {
			audit := series.NewAuditLog(store)
			for i, ts := range []string{"2025-07-13T10:00:00.000Z", "2025-07-13T11:00:00.000Z"} {
				err := audit.Record(ctx, series.Execution{
					Id:            []string{"a", "b"}[i],
					ExecutionTime: ts,
					Status:        model.StatusSuccess,
					Results: []model.TaskResult{{
						TaskId: "t", DataSource: "dolarapi", RecordsProcessed: 3, Status: model.StatusSuccess,
					}},
				})
				Expect(err).NotTo(HaveOccurred())
			}

			recent, err := audit.Recent(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(2))
			Expect(recent[0].Id).To(Equal("b"))
			Expect(recent[0].Results[0].RecordsProcessed).To(Equal(3))
		})
	})
})
