package entity

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxFilenameLength caps sanitized original filenames, extension included
	MaxFilenameLength = 100
	// FallbackFilename replaces names that sanitize to nothing
	FallbackFilename = "attachment"

	// ClaimsPrefix is the storage prefix owning every claim directory
	ClaimsPrefix = "claims/"
)

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
	repeatedSep = regexp.MustCompile(`[_.-]{2,}`)
)

// extensionAliases lists other spellings accepted for a sniffed extension
var extensionAliases = map[string][]string{
	".jpg":  {".jpeg", ".jpe", ".jfif"},
	".tiff": {".tif"},
	".htm":  {".html"},
}

// SanitizeFilename returns a filesystem-safe version of an uploaded filename.
// Directory components and traversal sequences are dropped, every other
// character outside [A-Za-z0-9._-] becomes "_", and the result is capped at
// MaxFilenameLength while keeping the extension.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.ReplaceAll(name, "..", "")

	ext := strings.ToLower(path.Ext(name))
	stem := strings.TrimSuffix(name, path.Ext(name))

	stem = unsafeChars.ReplaceAllString(stem, "_")
	stem = repeatedSep.ReplaceAllString(stem, "_")
	stem = strings.Trim(stem, "._-")

	ext = unsafeChars.ReplaceAllString(ext, "")
	if ext == "." {
		ext = ""
	}
	if len(ext) > 10 {
		ext = ext[:10]
	}

	if stem == "" {
		stem = FallbackFilename
	}
	if max := MaxFilenameLength - len(ext); len(stem) > max {
		stem = stem[:max]
	}

	return stem + ext
}

// NewStoredFilename builds a collision-resistant name: a UTC time prefix,
// a random UUID suffix and the given extension.
func NewStoredFilename(now time.Time, ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_%s%s", now.UTC().Format("20060102T150405"), id, ext)
}

// StoredExtension picks the extension for a stored file. The extension of the
// sanitized original name wins when it is non-empty and names the sniffed
// type, otherwise the sniffed extension is used. With nothing sniffed the
// original extension is kept.
func StoredExtension(original, sniffed string) string {
	own := strings.ToLower(path.Ext(original))
	sniffed = strings.ToLower(sniffed)
	if own == "." {
		own = ""
	}
	if sniffed == "" || own == sniffed {
		return own
	}
	if own != "" {
		for _, alias := range extensionAliases[sniffed] {
			if own == alias {
				return own
			}
		}
	}
	return sniffed
}

// ClaimFilePath returns the storage path of a stored file inside its claim directory
func ClaimFilePath(claimID int64, storedFilename string) string {
	return fmt.Sprintf("%s%d/%s", ClaimsPrefix, claimID, storedFilename)
}
