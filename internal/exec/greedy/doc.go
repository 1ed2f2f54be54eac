// Package greedy is the reference executor: a push graph evaluating one
// input at a time, depth first.
//
// Every value is pushed through the graph as soon as it is produced. Batches
// are delimited by BatchEnd signals: the root closes the batch of the whole
// input and every Scope closes one batch per value it forwards. Aggregations
// emit when the batch they belong to ends, and joins pair only the values
// of the same batch of the scopes both of their operands descend from.
//
// A node whose children are all complete is complete itself and receives
// no further values until the next active BatchEnd, so that First and
// Exists stop upstream producers early.
package greedy
