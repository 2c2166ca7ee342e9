// Package queue persists translation jobs in SQLite so runs can be inspected
// and resumed across process restarts.
package queue
