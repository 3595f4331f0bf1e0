// Package chatstore is the Chat Session Store: a SQLite-backed append-only
// log of conversation turns keyed by session id, fronted by an optional
// pkg/checkpoint.Cache read-through cache for History lookups.
package chatstore
