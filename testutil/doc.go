// Package testutil provides testing utilities for sptable.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, goroutine-safe RNG and generators for randomized
// insert/remove workloads.
//
// # Churn Workloads
//
//	rng := testutil.NewRNG(seed)
//	ops := rng.ChurnOps(10_000, 0.6) // 60% inserts, 40% removes
//	for _, op := range ops {
//	    switch op.Kind {
//	    case testutil.OpInsert: ...
//	    case testutil.OpRemove: victim := op.Pick(len(live))
//	    }
//	}
package testutil
