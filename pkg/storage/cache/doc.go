// Package cache adds project caching in front of an api.Storage.
package cache
