// Package strategy decides which healthy endpoint should become active after
// a scan. Selection is deterministic: equal probe results always produce the
// same choice.
package strategy
