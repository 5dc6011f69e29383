// Package daemon coordinates the long-running mediaq process.
//
// It owns the single-instance lock, turns paths into jobs using the
// configured action preferences, and exposes the queue facade (add, list,
// remove, move, start, stop, retry) that the IPC server forwards to. The
// queue engine itself lives in the workflow package; the daemon only decides
// when to start it and checkpoints the collection after every edit.
package daemon
