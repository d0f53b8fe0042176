// Package middleware provides request gating applied ahead of the analytics
// handlers, most notably the per-IP rate limiter backed by Redis.
package middleware
