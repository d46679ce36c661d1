// Package active tracks which endpoint is currently in use. The monitor reads
// and changes it only through Provider, so tests can swap in MemoryProvider
// instead of mutating the process environment.
package active
