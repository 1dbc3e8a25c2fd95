package media

import (
	"net/url"
	"path"
	"strings"
)

type ImageKind int

const (
	ImageKindNone ImageKind = iota
	ImageKindPNG
	ImageKindJPEG
	ImageKindGIF
	ImageKindWebP
	// ImageKindRemote is an http(s) link without a recognizable extension, typically a CDN route
	ImageKindRemote
)

type ImageInfo struct {
	Kind        ImageKind
	URL         string
	ContentType string
}

var kindsByExtension = map[string]ImageInfo{
	".png":  {Kind: ImageKindPNG, ContentType: "image/png"},
	".jpg":  {Kind: ImageKindJPEG, ContentType: "image/jpeg"},
	".jpeg": {Kind: ImageKindJPEG, ContentType: "image/jpeg"},
	".gif":  {Kind: ImageKindGIF, ContentType: "image/gif"},
	".webp": {Kind: ImageKindWebP, ContentType: "image/webp"},
}

var extensionsByContentType = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func GetImageInfo(link *string) ImageInfo {
	if link == nil || strings.TrimSpace(*link) == "" {
		return ImageInfo{Kind: ImageKindNone}
	}

	l := strings.TrimSpace(*link)
	u, err := url.Parse(l)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ImageInfo{Kind: ImageKindNone}
	}

	// Query strings are common on CDN links, only the path decides the type
	if info, ok := kindsByExtension[strings.ToLower(path.Ext(u.Path))]; ok {
		info.URL = l
		return info
	}

	return ImageInfo{Kind: ImageKindRemote, URL: l}
}

func IsImageURL(link string) bool {
	return GetImageInfo(&link).Kind != ImageKindNone
}

// ExtensionFor returns the file extension for an accepted upload content type.
func ExtensionFor(contentType string) (string, bool) {
	// Drop parameters like "; charset=binary"
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	ext, ok := extensionsByContentType[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}
