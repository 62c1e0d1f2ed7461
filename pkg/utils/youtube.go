package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrNotYouTubeURL = errors.New("not a YouTube URL")

func isYouTubeHost(host string) bool {
	host = strings.ToLower(host)
	return host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com")
}

// ExtractYouTubeID returns the video ID of a watch, short link, embed or shorts URL.
func ExtractYouTubeID(youtubeURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(youtubeURL))
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if !isYouTubeHost(u.Host) {
		return "", fmt.Errorf("%w: %s", ErrNotYouTubeURL, youtubeURL)
	}

	if strings.EqualFold(u.Host, "youtu.be") {
		if id := strings.Trim(u.Path, "/"); id != "" {
			return id, nil
		}
		return "", fmt.Errorf("no video ID found in youtu.be URL")
	}

	if strings.HasPrefix(u.Path, "/watch") {
		if id := u.Query().Get("v"); id != "" {
			return id, nil
		}
	}

	for _, prefix := range []string{"/embed/", "/v/", "/shorts/", "/live/"} {
		if strings.HasPrefix(u.Path, prefix) {
			id := strings.TrimPrefix(u.Path, prefix)
			if i := strings.Index(id, "/"); i != -1 {
				id = id[:i]
			}
			if id != "" {
				return id, nil
			}
		}
	}

	return "", fmt.Errorf("unable to extract video ID from URL: %s", youtubeURL)
}

func IsYouTubeURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	return isYouTubeHost(u.Host)
}
