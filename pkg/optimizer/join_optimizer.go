package optimizer

import (
	"fmt"
	"math"
	"math/bits"
)

// maxRelationsForDP bounds the bitmask-DP enumerator: 2^n subsets makes it
// infeasible past a couple dozen relations. Past this bound OrderJoins falls
// back to a cheap greedy chain instead of refusing to plan the query.
const maxRelationsForDP = 14

// JoinEdge describes one equi-join predicate between two tables' columns,
// as it would appear in a WHERE clause linking them (e.g. "a.id = b.a_id").
// KeyOnLeft/KeyOnRight mark whether that side's column is the table's
// primary key, which is what lets the cardinality estimate use
// min(|L|,|R|)*selectivity instead of the full cross-product estimate.
type JoinEdge struct {
	LeftTable  string
	LeftField  int
	RightTable string
	RightField int
	KeyOnLeft  bool
	KeyOnRight bool
}

// JoinPlan is the result of ordering a set of tables for a left-deep join:
// Order lists the tables outer-to-inner, and Cost/Cardinality are the
// optimizer's estimate for executing them in that order.
type JoinPlan struct {
	Order       []string
	Cost        float64
	Cardinality int64
}

// JoinOrderOptimizer chooses a left-deep join order over a set of tables
// using Selinger-style dynamic programming: it memoizes, for every subset of
// tables, the cheapest way to join exactly that subset, then grows subsets
// one table at a time from smaller subsets it has already solved.
type JoinOrderOptimizer struct {
	stats *StatsManager
}

// NewJoinOrderOptimizer builds an optimizer backed by stats.
func NewJoinOrderOptimizer(stats *StatsManager) *JoinOrderOptimizer {
	return &JoinOrderOptimizer{stats: stats}
}

// OrderJoins picks a join order for tables connected by edges. Every table
// must have stats registered in the optimizer's StatsManager and every edge
// must name two distinct tables from the list.
func (jo *JoinOrderOptimizer) OrderJoins(tables []string, edges []JoinEdge) (*JoinPlan, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables to join")
	}
	for _, name := range tables {
		if _, ok := jo.stats.Get(name); !ok {
			return nil, fmt.Errorf("no statistics for table %q", name)
		}
	}
	if len(tables) == 1 {
		return jo.basePlan(tables[0])
	}
	if len(tables) > maxRelationsForDP {
		return jo.orderGreedy(tables, edges)
	}
	return jo.orderByDP(tables, edges)
}

func (jo *JoinOrderOptimizer) basePlan(table string) (*JoinPlan, error) {
	stats, ok := jo.stats.Get(table)
	if !ok {
		return nil, fmt.Errorf("no statistics for table %q", table)
	}
	return &JoinPlan{
		Order:       []string{table},
		Cost:        stats.EstimateScanCost(),
		Cardinality: stats.TotalTuples(),
	}, nil
}

// orderByDP runs the bitmask dynamic-programming enumeration: dpTable[mask]
// holds the best plan found so far for the subset of tables mask encodes,
// built by extending a smaller subset's best plan with one more relation
// connected to it by a JoinEdge.
func (jo *JoinOrderOptimizer) orderByDP(tables []string, edges []JoinEdge) (*JoinPlan, error) {
	n := len(tables)
	indexOf := make(map[string]int, n)
	for i, name := range tables {
		indexOf[name] = i
	}

	dpTable := make(map[uint64]*JoinPlan, 1<<uint(n))
	for i, name := range tables {
		plan, err := jo.basePlan(name)
		if err != nil {
			return nil, err
		}
		dpTable[uint64(1)<<uint(i)] = plan
	}

	fullMask := uint64(1)<<uint(n) - 1
	for mask := uint64(1); mask <= fullMask; mask++ {
		if bits.OnesCount64(mask) < 2 {
			continue
		}
		if dpTable[mask] != nil {
			continue
		}

		var best *JoinPlan
		bestCost := math.MaxFloat64

		for i := 0; i < n; i++ {
			bit := uint64(1) << uint(i)
			if mask&bit == 0 {
				continue
			}
			leftMask := mask &^ bit
			if leftMask == 0 {
				continue
			}
			leftPlan := dpTable[leftMask]
			if leftPlan == nil {
				continue
			}

			edge := findConnectingEdge(edges, tables[i], leftMask, indexOf)
			if edge == nil {
				continue
			}

			plan, err := jo.extendPlan(leftPlan, tables[i], *edge)
			if err != nil {
				return nil, err
			}
			if plan.Cost < bestCost {
				bestCost = plan.Cost
				best = plan
			}
		}

		if best == nil {
			// No edge connects this subset as one left-deep chain; skip it.
			// A larger subset that happens to route through a different
			// split may still succeed.
			continue
		}
		dpTable[mask] = best
	}

	plan := dpTable[fullMask]
	if plan == nil {
		return nil, fmt.Errorf("tables are not fully connected by join edges")
	}
	return plan, nil
}

// findConnectingEdge returns an edge joining candidate to some table already
// present in leftMask, preferring a key-equi-join (cheaper, more selective)
// over a non-key one when both exist.
func findConnectingEdge(edges []JoinEdge, candidate string, leftMask uint64, indexOf map[string]int) *JoinEdge {
	var found *JoinEdge
	for i := range edges {
		e := &edges[i]
		var other string
		switch {
		case e.LeftTable == candidate:
			other = e.RightTable
		case e.RightTable == candidate:
			other = e.LeftTable
		default:
			continue
		}
		idx, ok := indexOf[other]
		if !ok || leftMask&(uint64(1)<<uint(idx)) == 0 {
			continue
		}
		if found == nil || (e.KeyOnLeft || e.KeyOnRight) {
			found = e
		}
	}
	return found
}

// extendPlan joins left's plan with one more table, per §4.7's cost and
// cardinality model: cost is left's own cost plus left's cardinality times
// the new table's scan cost, and cardinality is min(|L|,|R|)*selectivity for
// an equi-join on a key column, or the full product otherwise.
func (jo *JoinOrderOptimizer) extendPlan(left *JoinPlan, table string, edge JoinEdge) (*JoinPlan, error) {
	stats, ok := jo.stats.Get(table)
	if !ok {
		return nil, fmt.Errorf("no statistics for table %q", table)
	}

	isKeyJoin := edge.KeyOnLeft || edge.KeyOnRight
	rightCard := stats.TotalTuples()

	var cardinality int64
	if isKeyJoin {
		field := edge.RightField
		if edge.RightTable != table {
			field = edge.LeftField
		}
		selectivity := stats.AvgSelectivity(field)
		cardinality = int64(math.Min(float64(left.Cardinality), float64(rightCard)) * selectivity)
	} else {
		cardinality = left.Cardinality * rightCard
	}
	if cardinality < 1 {
		cardinality = 1
	}

	cost := left.Cost + float64(left.Cardinality)*stats.EstimateScanCost()

	order := make([]string, len(left.Order)+1)
	copy(order, left.Order)
	order[len(left.Order)] = table

	return &JoinPlan{Order: order, Cost: cost, Cardinality: cardinality}, nil
}

// orderGreedy is the fallback for table sets too large for bitmask DP: it
// starts from the smallest table and repeatedly appends whichever remaining,
// edge-connected table looks cheapest to add next. It does not guarantee the
// optimal order, only a reasonable one in time linear in the number of
// tables.
func (jo *JoinOrderOptimizer) orderGreedy(tables []string, edges []JoinEdge) (*JoinPlan, error) {
	remaining := make(map[string]bool, len(tables))
	for _, t := range tables {
		remaining[t] = true
	}

	var startTable string
	var startCard int64 = math.MaxInt64
	for _, t := range tables {
		stats, _ := jo.stats.Get(t)
		if stats.TotalTuples() < startCard {
			startCard = stats.TotalTuples()
			startTable = t
		}
	}

	plan, err := jo.basePlan(startTable)
	if err != nil {
		return nil, err
	}
	delete(remaining, startTable)

	for len(remaining) > 0 {
		var bestTable string
		var bestEdge *JoinEdge
		bestCost := math.MaxFloat64
		for candidate := range remaining {
			mask := uint64(0)
			names := make(map[string]int, len(plan.Order))
			for i, t := range plan.Order {
				names[t] = i
				mask |= uint64(1) << uint(i)
			}
			edge := findConnectingEdge(edges, candidate, mask, names)
			if edge == nil {
				continue
			}
			extended, err := jo.extendPlan(plan, candidate, *edge)
			if err != nil {
				return nil, err
			}
			if extended.Cost < bestCost {
				bestCost = extended.Cost
				bestTable = candidate
				bestEdge = edge
			}
		}

		if bestEdge == nil {
			// Nothing left is connected; append remaining tables in
			// arbitrary order as cross-product joins so every table in
			// the set still ends up in the plan.
			for candidate := range remaining {
				extended, err := jo.extendPlan(plan, candidate, JoinEdge{})
				if err != nil {
					return nil, err
				}
				plan = extended
				delete(remaining, candidate)
			}
			continue
		}

		extended, err := jo.extendPlan(plan, bestTable, *bestEdge)
		if err != nil {
			return nil, err
		}
		plan = extended
		delete(remaining, bestTable)
	}

	return plan, nil
}
