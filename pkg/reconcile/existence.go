package reconcile

import (
	"context"
	"time"

	"argstats-api/pkg/logkit"
)

// DefaultLookupBatchSize bounds the keys sent per existence round-trip.
const DefaultLookupBatchSize = 100

// KeyLookup answers which natural keys are already persisted.
type KeyLookup interface {
	// ExistingKeys returns the subset of keys that exist.
	ExistingKeys(ctx context.Context, keys []string) ([]string, error)
	// AllKeys returns every stored key, unpaginated.
	AllKeys(ctx context.Context) ([]string, error)
}

// Degradation records how far the existence check had to fall back.
type Degradation string

const (
	DegradationNone      Degradation = "none"
	DegradationPartial   Degradation = "partial"    // some batches failed, their keys count as new
	DegradationFullScan  Degradation = "full_scan"  // every batch failed, AllKeys was used
	DegradationAssumeNew Degradation = "assume_new" // AllKeys failed too, everything counts as new
)

// FilterOptions tunes FilterExisting.
type FilterOptions struct {
	BatchSize int
	Delay     time.Duration // pause between batches
	Logger    logkit.Logger
}

// FilterResult partitions candidates by prior existence.
type FilterResult struct {
	New           []Record
	Existing      []Record
	Batches       int
	FailedBatches int
	Degradation   Degradation
}

// FilterExisting drops records whose key is already stored. Lookup failures
// never surface as errors: a failed batch is skipped and its keys are treated
// as new, a total failure falls back to AllKeys, and if that fails every
// candidate is treated as new. The store's uniqueness constraint absorbs any
// duplicate this lets through.
func FilterExisting(ctx context.Context, lookup KeyLookup, records []Record, opts FilterOptions) FilterResult {
	log := opts.Logger
	if log == nil {
		log = logkit.Nop{}
	}
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultLookupBatchSize
	}

	keys := uniqueKeys(records)
	res := FilterResult{Degradation: DegradationNone}
	if len(keys) == 0 {
		return res
	}

	found := make(map[string]struct{}, len(keys))
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		res.Batches++

		if start > 0 && opts.Delay > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				res.FailedBatches++
				log.Warn(ctx, "existence lookup interrupted", logkit.Fields{"batch": res.Batches, "error": err})
				continue
			}
		}

		existing, err := lookup.ExistingKeys(ctx, keys[start:end])
		if err != nil {
			res.FailedBatches++
			log.Warn(ctx, "existence lookup batch failed, treating its keys as new", logkit.Fields{
				"batch": res.Batches,
				"keys":  end - start,
				"error": err,
			})
			continue
		}
		for _, k := range existing {
			found[k] = struct{}{}
		}
	}

	switch {
	case res.FailedBatches == 0:
	case res.FailedBatches < res.Batches:
		res.Degradation = DegradationPartial
	default:
		log.Warn(ctx, "all existence lookup batches failed, falling back to full key scan", logkit.Fields{
			"batches": res.Batches,
		})
		all, err := lookup.AllKeys(ctx)
		if err != nil {
			log.Warn(ctx, "full key scan failed, assuming all records are new", logkit.Fields{
				"records": len(records),
				"error":   err,
			})
			res.Degradation = DegradationAssumeNew
			res.New = append(res.New, records...)
			return res
		}
		res.Degradation = DegradationFullScan
		for _, k := range all {
			found[k] = struct{}{}
		}
	}

	for _, rec := range records {
		if _, ok := found[rec.Key]; ok {
			res.Existing = append(res.Existing, rec)
			continue
		}
		res.New = append(res.New, rec)
	}
	return res
}

func uniqueKeys(records []Record) []string {
	seen := make(map[string]struct{}, len(records))
	keys := make([]string, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.Key]; ok {
			continue
		}
		seen[rec.Key] = struct{}{}
		keys = append(keys, rec.Key)
	}
	return keys
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
