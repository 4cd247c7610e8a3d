package optimizer

import (
	"context"
	"fmt"
	"storemy/pkg/catalog"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
	"storemy/pkg/tuple"
	"storemy/pkg/types"

	"golang.org/x/sync/errgroup"
)

// numHistogramBins matches the reference optimizer's per-column bin count:
// enough resolution to make selectivity estimates useful without keeping
// every value seen.
const numHistogramBins = 100

// ioCostPerPage is the assumed cost, in arbitrary cost units, of reading one
// page from disk. estimateScanCost expresses every scan's cost in these
// units so scan cost and join cost stay on the same scale.
const ioCostPerPage = 1000.0

type pageCounter interface {
	NumPages() (primitives.PageNumber, error)
}

// TableStats holds per-column histograms and row/page counts for a single
// table, built by scanning it once at startup. It answers the three
// questions the join optimizer needs: how expensive is a full scan, how many
// rows does it produce, and how selective is a given predicate against it.
type TableStats struct {
	tableName    string
	numTuples    int64
	numPages     int64
	ioCostPerPg  float64
	intHists     map[int]*IntHistogram
	stringHists  map[int]*StringHistogram
	fieldTypes   []types.Type
	fieldIndexOf map[string]int
}

// NewTableStats scans file's tuples twice on behalf of tid: once to find
// each integer column's min/max (needed to size its histogram), and once to
// populate every column's histogram and count rows and pages. This mirrors
// the reference TableStats' two-pass construction. ctx is checked between
// tuples so a sibling table's failed scan can abort this one early.
func NewTableStats(ctx context.Context, tid *primitives.TransactionID, tableName string, file page.DbFile) (*TableStats, error) {
	td := file.GetTupleDesc()
	numFields := td.NumFields()

	mins := make([]int64, numFields)
	maxs := make([]int64, numFields)
	seen := make([]bool, numFields)
	for i := range mins {
		mins[i] = 0
		maxs[i] = 0
	}

	if err := scanTable(ctx, tid, file, func(t *tuple.Tuple) error {
		for i := 0; i < numFields; i++ {
			ft, err := td.TypeAtIndex(i)
			if err != nil {
				return err
			}
			if ft != types.IntType {
				continue
			}
			f, err := t.GetField(i)
			if err != nil {
				return err
			}
			iv, ok := f.(*types.IntField)
			if !ok {
				continue
			}
			if !seen[i] {
				mins[i], maxs[i] = iv.Value, iv.Value
				seen[i] = true
			} else if iv.Value < mins[i] {
				mins[i] = iv.Value
			} else if iv.Value > maxs[i] {
				maxs[i] = iv.Value
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("stats scan (pass 1) of %q failed: %v", tableName, err)
	}

	stats := &TableStats{
		tableName:    tableName,
		ioCostPerPg:  ioCostPerPage,
		intHists:     make(map[int]*IntHistogram),
		stringHists:  make(map[int]*StringHistogram),
		fieldTypes:   make([]types.Type, numFields),
		fieldIndexOf: make(map[string]int, numFields),
	}
	for i := 0; i < numFields; i++ {
		ft, err := td.TypeAtIndex(i)
		if err != nil {
			return nil, err
		}
		stats.fieldTypes[i] = ft
		if name, _ := td.GetFieldName(i); name != "" {
			stats.fieldIndexOf[name] = i
		}
		switch ft {
		case types.IntType:
			stats.intHists[i] = NewIntHistogram(numHistogramBins, mins[i], maxs[i])
		case types.StringType:
			stats.stringHists[i] = NewStringHistogram()
		}
	}

	var rowCount int64
	if err := scanTable(ctx, tid, file, func(t *tuple.Tuple) error {
		rowCount++
		for i := 0; i < numFields; i++ {
			f, err := t.GetField(i)
			if err != nil {
				return err
			}
			switch v := f.(type) {
			case *types.IntField:
				stats.intHists[i].AddValue(v.Value)
			case *types.StringField:
				stats.stringHists[i].AddValue(v.Value)
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("stats scan (pass 2) of %q failed: %v", tableName, err)
	}
	stats.numTuples = rowCount

	if pc, ok := file.(pageCounter); ok {
		if n, err := pc.NumPages(); err == nil {
			stats.numPages = int64(n)
		}
	}
	if stats.numPages < 1 {
		stats.numPages = 1
	}

	return stats, nil
}

func scanTable(ctx context.Context, tid *primitives.TransactionID, file page.DbFile, visit func(*tuple.Tuple) error) error {
	it := file.Iterator(tid)
	if err := it.Open(); err != nil {
		return err
	}
	defer it.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hasNext, err := it.HasNext()
		if err != nil {
			return err
		}
		if !hasNext {
			return nil
		}
		t, err := it.Next()
		if err != nil {
			return err
		}
		if err := visit(t); err != nil {
			return err
		}
	}
}

// EstimateScanCost returns the estimated cost of a full sequential scan.
func (ts *TableStats) EstimateScanCost() float64 {
	return float64(ts.numPages) * ts.ioCostPerPg
}

// EstimateTableCardinality returns the estimated number of rows a scan with
// the given overall selectivity would produce.
func (ts *TableStats) EstimateTableCardinality(selectivity float64) int64 {
	return int64(float64(ts.numTuples) * selectivity)
}

// TotalTuples returns the table's row count as of the last stats build.
func (ts *TableStats) TotalTuples() int64 {
	return ts.numTuples
}

// AvgSelectivity returns the average selectivity of an equality predicate on
// field, used by the join optimizer before a literal operand is known.
func (ts *TableStats) AvgSelectivity(field int) float64 {
	if h, ok := ts.intHists[field]; ok {
		return h.AvgSelectivity()
	}
	if h, ok := ts.stringHists[field]; ok {
		return h.AvgSelectivity()
	}
	return 1.0
}

// EstimateSelectivity estimates the fraction of rows for which field OP
// constant holds.
func (ts *TableStats) EstimateSelectivity(field int, op types.Predicate, constant types.Field) (float64, error) {
	switch c := constant.(type) {
	case *types.IntField:
		h, ok := ts.intHists[field]
		if !ok {
			return 0, fmt.Errorf("field %d of %q has no integer histogram", field, ts.tableName)
		}
		return h.EstimateSelectivity(op, c.Value), nil
	case *types.StringField:
		h, ok := ts.stringHists[field]
		if !ok {
			return 0, fmt.Errorf("field %d of %q has no string histogram", field, ts.tableName)
		}
		return h.EstimateSelectivity(op, c.Value), nil
	default:
		return 0, fmt.Errorf("unsupported field type for selectivity estimation: %T", constant)
	}
}

// FieldIndex resolves a column name to its index, for callers that only know
// tables and column names rather than tuple positions.
func (ts *TableStats) FieldIndex(name string) (int, error) {
	idx, ok := ts.fieldIndexOf[name]
	if !ok {
		return 0, fmt.Errorf("unknown column %q in table %q", name, ts.tableName)
	}
	return idx, nil
}

// FieldType reports the declared type of field, for callers deciding which
// histogram kind a join column's selectivity must come from.
func (ts *TableStats) FieldType(field int) (types.Type, error) {
	if field < 0 || field >= len(ts.fieldTypes) {
		return 0, fmt.Errorf("field index %d out of bounds for table %q", field, ts.tableName)
	}
	return ts.fieldTypes[field], nil
}

// StatsManager owns one TableStats per table registered in a Catalog,
// (re)built by scanning every table once.
type StatsManager struct {
	stats map[string]*TableStats
}

// NewStatsManager scans every table known to cat and builds its TableStats
// concurrently: each table's histograms depend only on that table's own
// rows, so building them is an embarrassingly parallel, cancelable,
// error-propagating fan-out — exactly errgroup.Group's shape. The first
// table that fails to scan cancels every other in-flight scan, and that
// error is returned.
func NewStatsManager(ctx context.Context, tid *primitives.TransactionID, cat *catalog.Catalog) (*StatsManager, error) {
	names := cat.TableNames()

	results := make([]*TableStats, len(names))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(8)

	for i, name := range names {
		i, name := i, name
		group.Go(func() error {
			id, err := cat.TableID(name)
			if err != nil {
				return fmt.Errorf("resolving table %q: %v", name, err)
			}
			file, err := cat.DatabaseFile(id)
			if err != nil {
				return fmt.Errorf("resolving file for table %q: %v", name, err)
			}
			ts, err := NewTableStats(groupCtx, tid, name, file)
			if err != nil {
				return err
			}
			results[i] = ts
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	stats := make(map[string]*TableStats, len(names))
	for i, name := range names {
		stats[name] = results[i]
	}
	return &StatsManager{stats: stats}, nil
}

// Get returns the stats for tableName, or false if it is not known.
func (sm *StatsManager) Get(tableName string) (*TableStats, bool) {
	ts, ok := sm.stats[tableName]
	return ts, ok
}
