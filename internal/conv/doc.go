// Package conv provides safe integer type conversion utilities.
//
// Table capacity and IndexSet sizes are validated here once at construction,
// so that handle and key arithmetic on the hot path can use direct casts.
package conv
