package textutil

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// MediaName is the result of parsing a release-style filename.
type MediaName struct {
	TV      bool
	Title   string
	Year    int
	Season  int
	Episode int
}

var (
	episodePattern    = regexp.MustCompile(`(?i)^(.*?)[\s._-]*s(\d{1,2})[\s._-]*e(\d{1,3})`)
	episodeAltPattern = regexp.MustCompile(`(?i)^(.*?)[\s._-]+(\d{1,2})x(\d{2,3})(?:\D|$)`)
	yearPattern       = regexp.MustCompile(`^(.*?)[\s._\-(\[]+((?:19|20)\d{2})(?:[\s._\-)\]]|$)`)
	spacePattern      = regexp.MustCompile(`\s+`)
)

// ParseMediaName classifies a filename (with or without directory and
// extension) as a TV episode or a movie.
func ParseMediaName(name string) MediaName {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	for _, pattern := range []*regexp.Regexp{episodePattern, episodeAltPattern} {
		if m := pattern.FindStringSubmatch(base); m != nil {
			season, _ := strconv.Atoi(m[2])
			episode, _ := strconv.Atoi(m[3])
			return MediaName{TV: true, Title: cleanTitle(m[1]), Season: season, Episode: episode}
		}
	}
	if m := yearPattern.FindStringSubmatch(base); m != nil && strings.TrimSpace(m[1]) != "" {
		year, _ := strconv.Atoi(m[2])
		return MediaName{Title: cleanTitle(m[1]), Year: year}
	}
	return MediaName{Title: cleanTitle(base)}
}

func cleanTitle(s string) string {
	s = strings.NewReplacer(".", " ", "_", " ").Replace(s)
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.Trim(s, " -")
}
