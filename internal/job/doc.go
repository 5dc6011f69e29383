// Package job models a queued conversion: its status machine, its ordered
// pre/post action pipeline, and the lifecycle that turns a source file into
// a written destination through a media.Engine.
//
// Status flows ready -> working -> completed | failed | cancelled. Only the
// queue engine moves a job into working; Retry moves a failed or cancelled
// job back to ready. Destination and action list are frozen once a job
// leaves ready.
//
// Actions are a closed set of variants selected by Kind. Each variant
// encodes its own parameters and the codec in this package wraps them in a
// {"kind", "params"} envelope. Pre actions run after the source is opened
// and their failures are logged and ignored. Post actions run after a
// successful write; only the optimize action can fail the job.
package job
