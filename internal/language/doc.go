// Package language normalizes language codes found in track tags, sidecar
// subtitle filenames and configuration.
//
// Tracks store ISO 639-2 codes ("eng"); configuration and filenames commonly
// use ISO 639-1 ("en"), bibliographic variants ("fre") or plain words
// ("english"). A small built-in table covers the common cases and x/text
// resolves everything else.
package language
