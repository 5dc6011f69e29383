// Package ffmpeg implements media.Engine on top of the ffprobe and ffmpeg
// command-line tools.
//
// Open probes a container into an in-memory handle. Write remuxes the handle
// (tags, track languages and names, default dispositions, chapters, sidecar
// subtitles) into an mp4-family destination, optionally after running the
// source through a Transcoder such as Drapto. Every write lands in a hidden
// temporary file that is renamed into place only on success. Optimize
// rewrites the output with the moov atom first for progressive playback.
package ffmpeg
