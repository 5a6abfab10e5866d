package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EmpoweredVote/wifi-points/internal/wifi"
	"go.uber.org/zap"
)

// ErrNoRecords is returned when every source row was rejected. The store is
// left untouched rather than emptied.
var ErrNoRecords = errors.New("no valid records in source")

const DefaultBatchSize = 1000

type Options struct {
	BatchSize int
	// Atomic runs the delete and every chunk in one transaction.
	Atomic bool
	// DryRun stops after preparing records; the store is not touched.
	DryRun bool
	Suffix SuffixFunc
	Now    func() time.Time
}

// Report summarizes one ingestion run. RowsAfterDedup counts the records that
// survived id renaming and validation.
type Report struct {
	RowsRead       int            `json:"rowsRead"`
	RowsAfterDedup int            `json:"rowsAfterDedup"`
	RenamedIDs     int            `json:"renamedIds"`
	Rejected       []Rejection    `json:"-"`
	Defaults       map[string]int `json:"defaults"`

	CountBefore      int64   `json:"countBefore"`
	CountAfterDelete int64   `json:"countAfterDelete"`
	ChunkLoaded      []int64 `json:"chunkLoaded"`
	FinalCount       int64   `json:"finalCount"`
	DryRun           bool    `json:"dryRun"`
}

// Prepared is the store-free part of an ingestion run.
type Prepared struct {
	Records  []wifi.AccessPoint
	Rejected []Rejection
	Defaults map[string]int
	Renamed  int
}

// Prepare cleans ids, renames duplicate groups, then builds and validates
// records. Rows that cannot become valid records are rejected, not fatal.
func Prepare(rows []SourceRow, now time.Time, suffix SuffixFunc) (*Prepared, error) {
	if suffix == nil {
		suffix = RandomSuffix
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = cleanText(r.ID)
	}
	deduped, renamed, err := Dedup(ids, suffix)
	if err != nil {
		return nil, err
	}

	p := &Prepared{
		Records:  make([]wifi.AccessPoint, 0, len(rows)),
		Defaults: map[string]int{},
		Renamed:  renamed,
	}
	for i, r := range rows {
		r.ID = deduped[i]
		ap, rej := toRecord(r, now, p.Defaults)
		if rej != nil {
			p.Rejected = append(p.Rejected, *rej)
			continue
		}
		p.Records = append(p.Records, ap)
	}
	return p, nil
}

// Load reads the CSV at path and runs the ingestion.
func Load(ctx context.Context, store wifi.Store, path string, opts Options, log *zap.Logger) (*Report, error) {
	rows, err := ReadCSVFile(path)
	if err != nil {
		return nil, err
	}
	log.Info("Source read", zap.String("path", path), zap.Int("rows", len(rows)))
	return Run(ctx, store, rows, opts, log)
}

// Run replaces the stored dataset with rows: delete everything, then insert in
// chunks with insert-or-ignore. In chunked mode a failing chunk stops the run
// and earlier chunks stay committed.
func Run(ctx context.Context, store wifi.Store, rows []SourceRow, opts Options, log *zap.Logger) (*Report, error) {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	now := time.Now().UTC()
	if opts.Now != nil {
		now = opts.Now()
	}

	prep, err := Prepare(rows, now, opts.Suffix)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		RowsRead:       len(rows),
		RowsAfterDedup: len(prep.Records),
		RenamedIDs:     prep.Renamed,
		Rejected:       prep.Rejected,
		Defaults:       prep.Defaults,
		DryRun:         opts.DryRun,
	}

	log.Info("Records prepared",
		zap.Int("rows_read", rep.RowsRead),
		zap.Int("rows_after_dedup", rep.RowsAfterDedup),
		zap.Int("renamed_ids", rep.RenamedIDs),
		zap.Int("rejected", len(rep.Rejected)),
		zap.Any("defaults", rep.Defaults))
	for _, rej := range prep.Rejected {
		log.Warn("Row rejected", zap.Int("line", rej.Line), zap.String("id", rej.ID), zap.String("reason", rej.Reason))
	}

	if len(prep.Records) == 0 {
		return rep, ErrNoRecords
	}
	if opts.DryRun {
		log.Info("Dry run: store not modified", zap.Int("records", len(prep.Records)))
		return rep, nil
	}

	replace := func(s wifi.Store) error {
		return replaceAll(ctx, s, prep.Records, opts.BatchSize, rep, log)
	}
	if opts.Atomic {
		err = store.Transaction(ctx, replace)
	} else {
		err = replace(store)
	}
	if err != nil {
		return rep, err
	}

	if rep.FinalCount, err = store.Count(ctx, wifi.Filter{}); err != nil {
		return rep, fmt.Errorf("count after load: %w", err)
	}
	log.Info("Load finished", zap.Int64("final_count", rep.FinalCount), zap.Bool("atomic", opts.Atomic))
	return rep, nil
}

func replaceAll(ctx context.Context, s wifi.Store, records []wifi.AccessPoint, batchSize int, rep *Report, log *zap.Logger) error {
	var err error
	if rep.CountBefore, err = s.Count(ctx, wifi.Filter{}); err != nil {
		return fmt.Errorf("count before delete: %w", err)
	}
	log.Info("Rows before delete", zap.Int64("count", rep.CountBefore))

	if _, err := s.DeleteAll(ctx); err != nil {
		return fmt.Errorf("delete existing rows: %w", err)
	}
	if rep.CountAfterDelete, err = s.Count(ctx, wifi.Filter{}); err != nil {
		return fmt.Errorf("count after delete: %w", err)
	}
	log.Info("Rows after delete", zap.Int64("count", rep.CountAfterDelete))

	chunks := (len(records) + batchSize - 1) / batchSize
	for i := 0; i < chunks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := i * batchSize
		end := min(start+batchSize, len(records))

		n, err := s.BulkUpsert(ctx, records[start:end])
		if err != nil {
			return fmt.Errorf("chunk %d of %d: %w", i+1, chunks, err)
		}
		rep.ChunkLoaded = append(rep.ChunkLoaded, n)
		log.Info("Chunk loaded",
			zap.Int("chunk", i+1),
			zap.Int("of", chunks),
			zap.Int("rows", end-start),
			zap.Int64("inserted", n))
	}
	return nil
}
