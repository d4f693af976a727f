// Package cache provides a small in-process LRU cache used to bound
// per-user resources held by long-lived components, such as the real-time
// hub's user event streams. Evictions can trigger a cleanup callback so
// cached resources are released, not just forgotten.
package cache
