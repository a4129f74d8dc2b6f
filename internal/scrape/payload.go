package scrape

// Entity is the provider payload recovered from an embed page. The shape
// differs from the web API: display text lives in title/subtitle pairs and
// collection members arrive as a flat trackList.
type Entity struct {
	Type      string         `json:"type"`
	Name      string         `json:"name,omitempty"`
	Title     string         `json:"title,omitempty"`
	Subtitle  string         `json:"subtitle,omitempty"`
	URI       string         `json:"uri"`
	ID        string         `json:"id,omitempty"`
	Duration  int64          `json:"duration,omitempty"`
	Artists   []EntityArtist `json:"artists,omitempty"`
	CoverArt  CoverArt       `json:"coverArt,omitempty"`
	TrackList []ListEntry    `json:"trackList,omitempty"`
}

type EntityArtist struct {
	Name string `json:"name"`
	URI  string `json:"uri,omitempty"`
}

type CoverArt struct {
	Sources []ImageSource `json:"sources"`
}

type ImageSource struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ListEntry is one member of an embed page trackList. Subtitle carries the
// joined artist names, Duration is in milliseconds.
type ListEntry struct {
	URI      string `json:"uri"`
	UID      string `json:"uid,omitempty"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Duration int64  `json:"duration,omitempty"`
}
