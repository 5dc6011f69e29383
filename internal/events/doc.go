// Package events fans queue notifications out to subscribers.
//
// The Hub numbers every event, keeps a bounded backlog for polling clients
// (Fetch, Tail), and delivers each event to every subscriber in publish order
// on a per-subscriber goroutine so a slow subscriber never blocks the queue
// worker or its siblings.
package events
