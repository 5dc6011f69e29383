// Command mediaq is the command line front end for the mediaq queue daemon.
//
// Most subcommands talk to a running daemon over its unix socket. The daemon
// itself is started with `mediaq daemon start` (detached) or
// `mediaq daemon run` (foreground).
package main
