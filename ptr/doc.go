// Package ptr provides a reference-counted handle pair.
//
// A Shared owns a heap value together with every other Shared cloned from it;
// when the last one is released the value is dropped and, if it implements
// Releaser, its Release method runs. A Weak observes the same value without
// keeping it alive and can be upgraded with Lock while the value still exists,
// which allows back-references (child to parent) that do not leak.
//
// Handles must not be copied by value; use Clone. The zero value of both
// types is an empty handle.
//
// Counts are atomic, so distinct handles to one value may be cloned and
// released from different goroutines. A single handle instance is not safe
// for concurrent use.
package ptr
