package img

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/tendant/nailbiter/internal/processors"
)

// ThumbnailName derives the storage key of a thumbnail:
//
//	photos/cat.jpg, "thumbnail", 100x150 -> photos/thumbnail-cat-100x150.jpg
//
// The result depends only on its arguments. The extension is copied from the
// original name as is.
func ThumbnailName(original, thumbName string, size processors.Size) string {
	dir, file := path.Split(original)
	stem, ext := splitExt(file)
	return dir + fmt.Sprintf("%s-%s-%dx%d%s", thumbName, stem, size.Width, size.Height, ext)
}

// splitExt splits file into stem and extension. Leading dots belong to the
// stem, so ".profile" has no extension.
func splitExt(file string) (string, string) {
	trimmed := strings.TrimLeft(file, ".")
	i := strings.LastIndex(trimmed, ".")
	if i < 0 {
		return file, ""
	}
	i += len(file) - len(trimmed)
	return file[:i], file[i:]
}

// ThumbnailURL builds the public URL of a thumbnail from the URL of its
// original: the scheme and authority (userinfo included) of baseURL are kept and the path is replaced
// by the derived key. No I/O is performed.
func ThumbnailURL(baseURL, original, thumbName string, size processors.Size) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", baseURL, err)
	}
	name := strings.TrimPrefix(ThumbnailName(original, thumbName, size), "/")
	if u.Host == "" {
		return "/" + name, nil
	}
	authority := u.Host
	if u.User != nil {
		authority = u.User.String() + "@" + u.Host
	}
	return fmt.Sprintf("%s://%s/%s", u.Scheme, authority, name), nil
}
