// Package drapto integrates the Drapto Go library as the transcode step of the
// ffmpeg media engine.
//
// Library satisfies ffmpeg.Transcoder: it encodes a source into a staging
// directory and forwards Drapto's stage and encoding progress as a single
// percentage. Warnings and errors reported by Drapto are logged.
package drapto
