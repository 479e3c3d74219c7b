package download

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const (
	generatorURL      = "https://ilide.info/docgeneratev2"
	sourceURLPrefix   = "https://scribd.vdownloaders.com/pdownload/"
	viewerURLPrefix   = "https://ilide.info/viewer/web/viewer.html?file="
	servedFilePrefix  = "ilide.info-"
	servedFileExt     = ".pdf"
	downloadButtonID  = "#download"
	maxRenameAttempts = 10000
)

var servedFileRegex = regexp.MustCompile(`https://ilide\.info/docdownloadv2-([^?]+)`)

// generateURL is the page that prepares a downloadable copy of the document.
func generateURL(id string, title string) string {
	params := []string{
		"fileurl=" + url.QueryEscape(sourceURLPrefix+id+"/"+title),
		"title=" + url.QueryEscape(title),
		"utm_source=scrfree",
		"utm_medium=queue",
		"utm_campaign=dl",
	}
	return generatorURL + "?" + strings.Join(params, "&")
}

// servedFilename is the name the download service gives the file, derived from the viewer URL.
func servedFilename(viewerURL string) (string, bool) {
	decoded := unescapeLenient(viewerURL)
	match := servedFileRegex.FindStringSubmatch(decoded)
	if match == nil || len(match[1]) == 0 {
		return "", false
	}
	return servedFilePrefix + match[1] + servedFileExt, true
}

// unescapeLenient decodes every valid %XX sequence and keeps malformed ones as they are,
// so one bad escape does not hide the rest of the URL.
func unescapeLenient(s string) string {
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if value, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(value))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// renameWithoutOverwrite moves src to dst, or to dst with a _1, _2, ... suffix if dst is taken.
func renameWithoutOverwrite(src string, dst string) (string, error) {
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, src)
		}
		return "", err
	}

	ext := filepath.Ext(dst)
	base := strings.TrimSuffix(dst, ext)

	target := dst
	for counter := 1; counter <= maxRenameAttempts; counter++ {
		if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
			if err := os.Rename(src, target); err != nil {
				return "", fmt.Errorf("could not rename %s: %w", src, err)
			}
			return target, nil
		}
		target = fmt.Sprintf("%s_%d%s", base, counter, ext)
	}

	return "", fmt.Errorf("no free name for %s", dst)
}
