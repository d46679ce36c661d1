// Package health persists the last known health of every endpoint.
package health
