package scribd

import (
	"fmt"
	"regexp"
	"strings"
)

const defaultFilename = "default_filename"

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

// SanitizeFilename replaces characters that are invalid in file names with "_" and trims
// surrounding spaces and dots.
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(strings.TrimSpace(name), ".")
	if len(name) == 0 {
		return defaultFilename
	}
	return name
}

func CanonicalFilename(title string, id string) string {
	return fmt.Sprintf("%s (%s).pdf", SanitizeFilename(title), id)
}
