/*
Package session guards run submissions that share an idempotency key.

A client that retries a request after a timeout must not start a second run.
The Manager serializes work per key, locally with a reference-counted mutex
and across replicas through an optional ports.DistributedLocker, and replays
the archived transcript when the key has already run.
*/
package session
