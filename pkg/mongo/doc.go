// Package mongo provides MongoDB connection management with
// environment-driven configuration and retry logic.
//
// NewWithDatabase returns the *mongo.Database the MongoDB-backed
// notification storage is constructed from. Health check helpers integrate
// with readiness probes.
package mongo
