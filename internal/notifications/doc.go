// Package notifications delivers queue events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when notifications are disabled. The
// Observer subscribes to the queue's event hub and reports failed jobs,
// stopped queues and finished runs.
package notifications
