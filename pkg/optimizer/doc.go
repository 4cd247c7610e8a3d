// Package optimizer estimates selectivity and chooses a join order for a
// query's table set. It keeps one histogram-backed TableStats per table,
// built by scanning each table once at startup, and uses those stats to
// evaluate the cost of candidate left-deep join orderings.
package optimizer
