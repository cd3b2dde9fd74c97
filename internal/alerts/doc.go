// Package alerts delivers operational notifications to an ntfy topic. With
// no topic configured every call is a silent no-op.
package alerts
