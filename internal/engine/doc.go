// Package engine is the query engine façade: it owns the full
// parse → bind → plan → execute → serialize pipeline and is the only
// entry point hosts embed.
//
// The engine is read-only over the scene and admits one query at a
// time: the host adapter is not safe for concurrent reads, so a gate
// serializes executions and bounds how many callers may wait. Every
// outcome carries a time-sortable query ID for correlation with the
// audit history and logs.
package engine
