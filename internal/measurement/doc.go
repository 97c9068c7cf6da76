// Package measurement persists the node's data locally: validated sensor
// samples, the faults handled by the Error state and the node identity.
//
// Samples are kept in SQLite until they are pruned, so a node that loses
// its broker still has a record of what it measured. Rows that could not
// be published are flagged and can be replayed later.
package measurement
