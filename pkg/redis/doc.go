// Package redis provides Redis connection helpers for the go-redis client:
// environment-driven configuration, a retrying Connect, and a health check
// suitable for liveness probes.
//
// The presence registry is the engine's Redis consumer; it takes the
// *redis.Client this package produces.
package redis
