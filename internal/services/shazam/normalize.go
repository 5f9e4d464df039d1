package shazam

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Match is the normalized subset of a recognition payload the pipeline keeps.
type Match struct {
	ShazamKey   int64
	AppleKey    string
	Title       string
	Artist      string
	CoverArt    string
	PreviewURI  string
	Genre       string
	Subgenres   []string
	Album       string
	Label       string
	ReleaseYear int
}

type detectPayload struct {
	Track *trackPayload `json:"track"`
}

type trackPayload struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Images   struct {
		CoverArt string `json:"coverart"`
	} `json:"images"`
	Hub struct {
		Actions []hubAction `json:"actions"`
		Options []struct {
			Actions []hubAction `json:"actions"`
		} `json:"options"`
	} `json:"hub"`
	Genres struct {
		Primary string `json:"primary"`
	} `json:"genres"`
	Sections []struct {
		Type     string `json:"type"`
		Metadata []struct {
			Title string `json:"title"`
			Text  string `json:"text"`
		} `json:"metadata"`
	} `json:"sections"`
}

type hubAction struct {
	Name string `json:"name"`
	Type string `json:"type"`
	ID   string `json:"id"`
	URI  string `json:"uri"`
}

// normalize extracts the fields the pipeline keeps from a raw detect payload.
// A payload without a track is a clean no-match.
func normalize(raw json.RawMessage) (*Match, bool, error) {
	var payload detectPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false, fmt.Errorf("decode detect payload: %w", err)
	}
	track := payload.Track
	if track == nil || strings.TrimSpace(track.Key) == "" {
		return nil, false, nil
	}

	key, err := strconv.ParseInt(strings.TrimSpace(track.Key), 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("parse track key %q: %w", track.Key, err)
	}

	match := &Match{
		ShazamKey: key,
		Title:     strings.TrimSpace(track.Title),
		Artist:    strings.TrimSpace(track.Subtitle),
		CoverArt:  track.Images.CoverArt,
	}

	actions := make([]hubAction, 0, len(track.Hub.Actions))
	actions = append(actions, track.Hub.Actions...)
	for _, option := range track.Hub.Options {
		actions = append(actions, option.Actions...)
	}
	for _, action := range actions {
		switch {
		case action.Name == "apple" || action.Type == "applemusicplay":
			if match.AppleKey == "" && action.ID != "" {
				match.AppleKey = action.ID
			}
		case action.Type == "uri" && strings.Contains(action.URI, ".m4a"):
			if match.PreviewURI == "" {
				match.PreviewURI = action.URI
			}
		}
	}

	if primary := strings.TrimSpace(track.Genres.Primary); primary != "" {
		match.Genre = primary
		for _, part := range strings.Split(primary, "/") {
			if part = strings.TrimSpace(part); part != "" {
				match.Subgenres = append(match.Subgenres, part)
			}
		}
	}

	for _, section := range track.Sections {
		if section.Type != "SONG" {
			continue
		}
		for _, meta := range section.Metadata {
			switch meta.Title {
			case "Album":
				match.Album = meta.Text
			case "Label":
				match.Label = meta.Text
			case "Released":
				if year, err := strconv.Atoi(strings.TrimSpace(meta.Text)); err == nil {
					match.ReleaseYear = year
				}
			}
		}
	}

	return match, true, nil
}
