// Package resource provides a memory budget shared by sptable tables.
//
// A Controller tracks bytes reserved by chunk allocations across any number of
// tables and, when a hard limit is configured, refuses reservations that
// would exceed it:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20, // 64MB across all tables
//	})
//
//	users, _ := sptable.New[User](1024, 256, sptable.WithMemoryController(rc))
//	sessions, _ := sptable.New[Session](512, 128, sptable.WithMemoryController(rc))
//
// Tables reserve with the non-blocking TryAcquireMemory, so an insert that
// would need a new chunk beyond the budget fails fast with
// sptable.ErrMemoryLimitExceeded. AcquireMemory blocks until budget is
// released or ctx is done, for callers that pre-reserve capacity.
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use. A nil *Controller is
// valid and tracks nothing.
package resource
