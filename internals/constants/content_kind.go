package constants

import (
	"net/url"
	"path"
	"strings"
)

// DetectContentKind menebak jenis konten sub bab dari URL-nya
// (video | file | link). URL kosong → text.
func DetectContentKind(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "text"
	}
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
		host := strings.ToLower(u.Hostname())
		if strings.Contains(host, "youtube.com") || host == "youtu.be" || strings.Contains(host, "vimeo.com") {
			return "video"
		}
	}

	switch strings.ToLower(path.Ext(p)) {
	case ".mp4", ".webm", ".mov", ".m3u8":
		return "video"
	case ".pdf", ".doc", ".docx", ".ppt", ".pptx", ".xls", ".xlsx", ".mp3", ".wav", ".zip":
		return "file"
	default:
		return "link"
	}
}
