// Package streamlink classifies music streaming URLs and URIs into typed entity links.
package streamlink

import (
	"net/url"
	"regexp"
	"strings"
)

// Kind identifies the entity class a link points at.
type Kind string

const (
	// KindTrack is a single-track link.
	KindTrack Kind = "track"
	// KindPlaylist is a playlist link.
	KindPlaylist Kind = "playlist"
	// KindAlbum is an album link.
	KindAlbum Kind = "album"
	// KindNone marks input that is not a structured entity link.
	KindNone Kind = ""
)

var (
	// Matches https://open.<service>.com/[intl-XX/][user/<name>/]<kind>/<id>.
	// The scheme and host literal are case-sensitive; the locale infix and
	// user scope are optional.
	openURLRegex = regexp.MustCompile(
		`^https://open\.([a-z0-9-]+)\.com/(?:intl-[a-zA-Z]{2}/)?(?:user/[^/]+/)?(track|playlist|album)/([a-zA-Z0-9]+)`)

	// Matches the URI scheme form <service>:<kind>:<id>.
	uriRegex = regexp.MustCompile(`^([a-z0-9-]+):(track|playlist|album):([a-zA-Z0-9]+)$`)
)

// Link is the parsed form of a structured entity reference.
type Link struct {
	Kind    Kind
	ID      string
	Service string
}

// None reports whether the input did not match any known grammar.
func (l Link) None() bool {
	return l.Kind == KindNone
}

// Classify parses an input string against the provider URL and URI grammars.
// A miss is a valid outcome, not an error: callers get a Link with KindNone
// and decide what a non-link input means for them. No network access occurs.
func Classify(input string) Link {
	input = strings.TrimSpace(input)

	if m := openURLRegex.FindStringSubmatch(input); m != nil {
		return Link{Kind: Kind(m[2]), ID: m[3], Service: m[1]}
	}

	if m := uriRegex.FindStringSubmatch(input); m != nil {
		return Link{Kind: Kind(m[2]), ID: m[3], Service: m[1]}
	}

	return Link{}
}

// IsPlayableURL reports whether a URL already points at the bridge service's
// watch grammar and can be streamed verbatim, without an equivalence search.
func IsPlayableURL(rawURL string) bool {
	return WatchID(rawURL) != ""
}

// WatchID extracts the video ID from a bridge-service watch URL. It returns
// an empty string for anything else, including playlist-only URLs.
func WatchID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	hostname := strings.ToLower(u.Hostname())

	if hostname == "youtu.be" {
		return strings.Trim(u.Path, "/")
	}

	switch hostname {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com":
		return u.Query().Get("v")
	}

	return ""
}
