// Package textutil provides small text helpers shared by the pipeline actions
// and the daemon: filename sanitization, release-name parsing and natural
// ordering of file names.
//
// ParseMediaName understands the common scene naming patterns
// ("Show.Name.S01E02.720p", "Movie Title (1999)", "Movie.Title.1999.1080p")
// and is deliberately forgiving: anything it cannot classify comes back as a
// movie whose title is the cleaned-up filename.
package textutil
