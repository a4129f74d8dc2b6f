// Package normalize maps heterogeneous provider payloads onto the canonical
// track and playlist model. The web API shape and the scraped embed shape
// both converge here, so downstream consumers never need to know which
// resolution path produced an entity.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"

	"tunebridge/internal/core"
	"tunebridge/internal/scrape"
)

// ErrUnsupportedPayload is returned when a payload cannot be mapped onto the
// canonical model.
var ErrUnsupportedPayload = errors.New("unsupported payload")

// Normalize maps a tagged provider payload onto the canonical model.
// Collection payloads yield a playlist whose tracks are also returned flat;
// single track payloads yield a one-element track list and no playlist.
func Normalize(payload core.SourcePayload) (*core.Playlist, []*core.Track, error) {
	switch payload.Kind {
	case core.PayloadPrimary:
		return normalizeAPI(payload.Payload)
	case core.PayloadScraped:
		return normalizeScraped(payload.Payload)
	default:
		return nil, nil, fmt.Errorf("%w: kind %q", ErrUnsupportedPayload, payload.Kind)
	}
}

func normalizeAPI(payload any) (*core.Playlist, []*core.Track, error) {
	switch p := payload.(type) {
	case *spotify.FullTrack:
		return nil, []*core.Track{TrackFromAPI(p)}, nil
	case *spotify.FullPlaylist:
		pl := PlaylistFromAPI(p)
		return pl, pl.Tracks, nil
	case *spotify.FullAlbum:
		pl := AlbumFromAPI(p)
		return pl, pl.Tracks, nil
	default:
		return nil, nil, fmt.Errorf("%w: %T", ErrUnsupportedPayload, payload)
	}
}

func normalizeScraped(payload any) (*core.Playlist, []*core.Track, error) {
	entity, ok := payload.(*scrape.Entity)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %T", ErrUnsupportedPayload, payload)
	}

	switch entity.Type {
	case "track":
		return nil, []*core.Track{TrackFromEntity(entity)}, nil
	case "playlist", "album":
		pl := PlaylistFromEntity(entity)
		return pl, pl.Tracks, nil
	default:
		return nil, nil, fmt.Errorf("%w: entity type %q", ErrUnsupportedPayload, entity.Type)
	}
}

// TrackFromAPI builds a canonical track from a web API track payload.
func TrackFromAPI(t *spotify.FullTrack) *core.Track {
	track := trackFromSimple(&t.SimpleTrack, firstImage(t.Album.Images))
	track.Metadata.Source.Payload = t
	return track
}

// TrackFromAlbum builds a canonical track from an album member, borrowing
// artwork from the album payload since member tracks carry none.
func TrackFromAlbum(st *spotify.SimpleTrack, album *spotify.FullAlbum) *core.Track {
	return trackFromSimple(st, firstImage(album.Images))
}

func trackFromSimple(st *spotify.SimpleTrack, thumbnail string) *core.Track {
	ms := int64(st.Duration)
	url := externalURL(st.ExternalURLs, "track", string(st.ID))

	return &core.Track{
		ID:         string(st.ID),
		Title:      st.Name,
		Author:     joinArtists(st.Artists),
		URL:        url,
		Thumbnail:  thumbnail,
		DurationMS: ms,
		Duration:   Timecode(ms),
		Source:     core.Source,
		Raw:        &core.RawSource{Kind: "track", ID: string(st.ID), URL: url},
		Metadata:   &core.TrackMetadata{Source: core.SourcePayload{Kind: core.PayloadPrimary, Payload: st}},
	}
}

// PlaylistFromAPI builds a canonical playlist from a web API playlist
// payload. Entries the provider returned without a track are skipped.
func PlaylistFromAPI(p *spotify.FullPlaylist) *core.Playlist {
	pl := &core.Playlist{
		ID:          string(p.ID),
		Title:       p.Name,
		Description: p.Description,
		Thumbnail:   firstImage(p.Images),
		URL:         externalURL(p.ExternalURLs, "playlist", string(p.ID)),
		Type:        "playlist",
		Author: core.Author{
			Name: orUnknown(p.Owner.DisplayName),
			URL:  p.Owner.ExternalURLs["spotify"],
		},
		Source: core.Source,
		Raw:    core.SourcePayload{Kind: core.PayloadPrimary, Payload: p},
	}

	for i := range p.Tracks.Tracks {
		entry := &p.Tracks.Tracks[i]
		if entry.Track.ID == "" && entry.Track.Name == "" {
			continue
		}
		track := TrackFromAPI(&entry.Track)
		track.Metadata.Source.Payload = entry
		track.Playlist = pl
		pl.Tracks = append(pl.Tracks, track)
	}
	return pl
}

// AlbumFromAPI builds a canonical playlist from a web API album payload.
func AlbumFromAPI(a *spotify.FullAlbum) *core.Playlist {
	pl := &core.Playlist{
		ID:        string(a.ID),
		Title:     a.Name,
		Thumbnail: firstImage(a.Images),
		URL:       externalURL(a.ExternalURLs, "album", string(a.ID)),
		Type:      "album",
		Author: core.Author{
			Name: joinArtists(a.Artists),
			URL:  artistURL(a.Artists),
		},
		Source: core.Source,
		Raw:    core.SourcePayload{Kind: core.PayloadPrimary, Payload: a},
	}

	for i := range a.Tracks.Tracks {
		track := TrackFromAlbum(&a.Tracks.Tracks[i], a)
		track.Playlist = pl
		pl.Tracks = append(pl.Tracks, track)
	}
	return pl
}

// TrackFromEntity builds a canonical track from a scraped track entity.
func TrackFromEntity(e *scrape.Entity) *core.Track {
	id := entityID(e)
	url := canonicalURL("track", id)

	return &core.Track{
		ID:         id,
		Title:      entityTitle(e),
		Author:     entityArtists(e),
		URL:        url,
		Thumbnail:  coverImage(e.CoverArt),
		DurationMS: e.Duration,
		Duration:   Timecode(e.Duration),
		Source:     core.Source,
		Raw:        &core.RawSource{Kind: "track", ID: id, URL: url},
		Metadata:   &core.TrackMetadata{Source: core.SourcePayload{Kind: core.PayloadScraped, Payload: e}},
	}
}

// PlaylistFromEntity builds a canonical playlist from a scraped playlist or
// album entity. Flat track list entries borrow the collection artwork.
func PlaylistFromEntity(e *scrape.Entity) *core.Playlist {
	id := entityID(e)

	pl := &core.Playlist{
		ID:        id,
		Title:     entityTitle(e),
		Thumbnail: coverImage(e.CoverArt),
		URL:       canonicalURL(e.Type, id),
		Type:      e.Type,
		Author:    core.Author{Name: entityArtists(e)},
		Source:    core.Source,
		Raw:       core.SourcePayload{Kind: core.PayloadScraped, Payload: e},
	}

	for i := range e.TrackList {
		track := trackFromListEntry(&e.TrackList[i], pl)
		pl.Tracks = append(pl.Tracks, track)
	}
	return pl
}

func trackFromListEntry(entry *scrape.ListEntry, pl *core.Playlist) *core.Track {
	id := idFromURI(entry.URI)
	url := canonicalURL("track", id)

	return &core.Track{
		ID:         id,
		Title:      entry.Title,
		Author:     orUnknown(entry.Subtitle),
		URL:        url,
		Thumbnail:  pl.Thumbnail,
		DurationMS: entry.Duration,
		Duration:   Timecode(entry.Duration),
		Source:     core.Source,
		Raw:        &core.RawSource{Kind: "track", ID: id, URL: url},
		Metadata:   &core.TrackMetadata{Source: core.SourcePayload{Kind: core.PayloadScraped, Payload: entry}},
		Playlist:   pl,
	}
}

func joinArtists(artists []spotify.SimpleArtist) string {
	if len(artists) == 0 {
		return UnknownArtist
	}
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func artistURL(artists []spotify.SimpleArtist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].ExternalURLs["spotify"]
}

func firstImage(images []spotify.Image) string {
	if len(images) == 0 {
		return DefaultThumbnail
	}
	return images[0].URL
}

// coverImage picks the largest embed artwork source.
func coverImage(art scrape.CoverArt) string {
	if len(art.Sources) == 0 {
		return DefaultThumbnail
	}
	best := art.Sources[0]
	for _, s := range art.Sources[1:] {
		if s.Width > best.Width {
			best = s
		}
	}
	return best.URL
}

func entityTitle(e *scrape.Entity) string {
	if e.Title != "" {
		return e.Title
	}
	return e.Name
}

func entityID(e *scrape.Entity) string {
	if e.ID != "" {
		return e.ID
	}
	return idFromURI(e.URI)
}

// entityArtists joins the artist list, falling back to the subtitle line the
// embed page renders under the title.
func entityArtists(e *scrape.Entity) string {
	if len(e.Artists) == 0 {
		return orUnknown(e.Subtitle)
	}
	names := make([]string, 0, len(e.Artists))
	for _, a := range e.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func externalURL(urls map[string]string, kind, id string) string {
	if u, ok := urls["spotify"]; ok && u != "" {
		return u
	}
	return canonicalURL(kind, id)
}

func canonicalURL(kind, id string) string {
	return fmt.Sprintf("https://open.spotify.com/%s/%s", kind, id)
}

func idFromURI(uri string) string {
	if i := strings.LastIndexByte(uri, ':'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

func orUnknown(name string) string {
	if name == "" {
		return UnknownArtist
	}
	return name
}
