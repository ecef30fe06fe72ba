package coordinator

import (
	"net/url"
	"os"
	"path"
	"strings"
)

// tempVideoFile creates the destination for a downloaded video,
// keeping the extension from the URL so the page recognizes the type.
func tempVideoFile(videoURL string) (*os.File, error) {
	ext := ".mp4"
	if u, err := url.Parse(videoURL); err == nil {
		if e := path.Ext(u.Path); e != "" && len(e) <= 5 && !strings.ContainsAny(e, "*?") {
			ext = e
		}
	}
	return os.CreateTemp("", "tokflow-video-*"+ext)
}
