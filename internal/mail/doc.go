// Package mail defines the capability contract shared by every mail
// provider and the result types it returns.
//
// Provider failures never escape a Service as Go errors. Each method traps
// its own protocol errors and converts them into a result value (an
// "error" SendResult, a ListResult or ReadResult with Error set, or an
// "An error occurred: ..." status string), so callers can render any
// provider's failure without provider-specific handling.
//
// Implementations live in the gmail, outlook and yahoo packages. None of
// them keeps a network connection between calls.
package mail
