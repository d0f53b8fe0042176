// Package analytics implements the app usage analytics service: event
// tracking with fan-out aggregate writes, weighted popularity ranking, and
// global/daily stats snapshots, all backed by Redis.
package analytics
