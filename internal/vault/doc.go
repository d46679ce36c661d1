// Package vault encrypts the whole endpoint store at rest.
//
// The key is derived from an operator password and a persisted 16-byte salt
// with PBKDF2-HMAC-SHA256 (480 000 rounds); the store is sealed with
// AES-256-GCM so a wrong password and tampered data are both detected.
//
// The salt is not secret but it is required: losing the salt file makes the
// vault undecryptable even with the right password.
package vault
