// Package broadcast provides type-safe publish/subscribe primitives for
// in-process event distribution.
//
// The Broadcaster fans messages out to any number of Subscribers without
// blocking the publisher: a subscriber whose buffer is full misses the
// message and is dropped. This suits real-time UI channels where stale
// events are worthless and a slow connection must never stall the rest.
//
// MemoryBroadcaster is the single-instance implementation used by the
// real-time hub. Multi-instance deployments should pair it with a shared
// presence registry so delivery state stays accurate across nodes.
package broadcast
