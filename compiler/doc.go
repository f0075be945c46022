// Package compiler applies a condition list and soft-delete policy to a
// data-source builder, collapsing OR branches into a common prefix plus a
// single disjunction.
//
// A single branch compiles to plain builder filters. Several branches
// compile to the soft-delete constraint, then eq/is calls for the Where
// equalities every branch shares, then one or() call rendered by
// filterexpr. Operator conditions are never hoisted.
package compiler
