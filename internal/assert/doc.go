// Package assert provides debug-only contract checks.
//
// Checks are active only when the module is built with the sptable_debug
// build tag:
//
//	go test -tags sptable_debug ./...
//
// Callers guard each check with the Enabled constant so the condition itself
// is eliminated from release builds:
//
//	if assert.Enabled {
//	    assert.That(!s.Contains(key), "sparse: key already present")
//	}
package assert
