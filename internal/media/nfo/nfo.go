// Package nfo implements media.MetadataProvider over Kodi-style .nfo
// sidecar files stored next to the source.
//
// Lookup order for a source "Movie (2001).mkv": "Movie (2001).nfo", then
// "movie.nfo" for movies. TV episodes fall back to the season or show
// "tvshow.nfo" for the show title only.
package nfo

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mediaq/internal/logging"
	"mediaq/internal/media"
)

// ProviderName is the value of movie_provider/tv_provider that selects this
// provider. An empty provider name also selects it.
const ProviderName = "nfo"

type movieDoc struct {
	XMLName   xml.Name `xml:"movie"`
	Title     string   `xml:"title"`
	Year      int      `xml:"year"`
	Premiered string   `xml:"premiered"`
	Plot      string   `xml:"plot"`
	Outline   string   `xml:"outline"`
	Genres    []string `xml:"genre"`
}

type episodeDoc struct {
	XMLName   xml.Name `xml:"episodedetails"`
	Title     string   `xml:"title"`
	ShowTitle string   `xml:"showtitle"`
	Season    int      `xml:"season"`
	Episode   int      `xml:"episode"`
	Aired     string   `xml:"aired"`
	Plot      string   `xml:"plot"`
	Genres    []string `xml:"genre"`
}

type showDoc struct {
	XMLName xml.Name `xml:"tvshow"`
	Title   string   `xml:"title"`
	Genres  []string `xml:"genre"`
}

// Provider reads sidecar .nfo files.
type Provider struct {
	logger *slog.Logger
}

// New builds a provider.
func New(logger *slog.Logger) *Provider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Provider{logger: logging.NewComponentLogger(logger, "nfo")}
}

// Search returns at most one result built from the sidecar files of q.Path.
// A missing sidecar yields no results and no error.
func (p *Provider) Search(ctx context.Context, q media.Query) ([]media.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Provider != "" && !strings.EqualFold(q.Provider, ProviderName) {
		return nil, fmt.Errorf("unsupported metadata provider %q", q.Provider)
	}
	if strings.TrimSpace(q.Path) == "" {
		return nil, errors.New("nfo lookup needs the source path")
	}

	var (
		md  media.Metadata
		err error
	)
	if q.Kind == "tv" {
		md, err = p.episode(q)
	} else {
		md, err = p.movie(q)
	}
	if err != nil || md == nil {
		return nil, err
	}
	return []media.Metadata{md}, nil
}

func (p *Provider) movie(q media.Query) (media.Metadata, error) {
	dir := filepath.Dir(q.Path)
	var doc movieDoc
	found, err := readFirst(&doc, sidecarPath(q.Path), filepath.Join(dir, "movie.nfo"))
	if err != nil || !found {
		return nil, err
	}
	md := media.Metadata{
		media.TagMediaType:   "movie",
		media.TagTitle:       strings.TrimSpace(doc.Title),
		media.TagDescription: firstNonEmpty(doc.Plot, doc.Outline),
		media.TagGenre:       strings.Join(doc.Genres, ", "),
	}
	switch {
	case doc.Premiered != "":
		md[media.TagDate] = strings.TrimSpace(doc.Premiered)
	case doc.Year > 0:
		md[media.TagDate] = strconv.Itoa(doc.Year)
	case q.Year > 0:
		md[media.TagDate] = strconv.Itoa(q.Year)
	}
	if md[media.TagTitle] == "" {
		md[media.TagTitle] = q.Title
	}
	p.logger.Debug("nfo metadata loaded", logging.String("title", md[media.TagTitle]))
	return md, nil
}

func (p *Provider) episode(q media.Query) (media.Metadata, error) {
	var doc episodeDoc
	found, err := readFirst(&doc, sidecarPath(q.Path))
	if err != nil {
		return nil, err
	}

	var show showDoc
	dir := filepath.Dir(q.Path)
	showFound, err := readFirst(&show, filepath.Join(dir, "tvshow.nfo"), filepath.Join(filepath.Dir(dir), "tvshow.nfo"))
	if err != nil {
		return nil, err
	}
	if !found && !showFound {
		return nil, nil
	}

	season, episode := q.Season, q.Episode
	if doc.Season > 0 {
		season = doc.Season
	}
	if doc.Episode > 0 {
		episode = doc.Episode
	}
	showTitle := firstNonEmpty(doc.ShowTitle, show.Title, q.Title)
	genres := doc.Genres
	if len(genres) == 0 {
		genres = show.Genres
	}

	md := media.Metadata{
		media.TagMediaType:   "tv",
		media.TagShow:        showTitle,
		media.TagTitle:       strings.TrimSpace(doc.Title),
		media.TagDate:        strings.TrimSpace(doc.Aired),
		media.TagDescription: strings.TrimSpace(doc.Plot),
		media.TagGenre:       strings.Join(genres, ", "),
	}
	if season > 0 {
		md[media.TagSeason] = strconv.Itoa(season)
	}
	if episode > 0 {
		md[media.TagEpisode] = strconv.Itoa(episode)
	}
	if season > 0 && episode > 0 {
		md[media.TagEpisodeID] = fmt.Sprintf("S%02dE%02d", season, episode)
	}
	p.logger.Debug("nfo metadata loaded",
		logging.String("show", showTitle),
		logging.Int("season", season),
		logging.Int("episode", episode),
	)
	return md, nil
}

func sidecarPath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + ".nfo"
}

// readFirst decodes the first existing candidate into doc.
func readFirst(doc any, candidates ...string) (bool, error) {
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("read %s: %w", path, err)
		}
		if err := xml.Unmarshal(data, doc); err != nil {
			return false, fmt.Errorf("parse %s: %w", path, err)
		}
		return true, nil
	}
	return false, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
