package upload

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	maxSafeName = 120
	randomBytes = 6
)

// SafeName reduces a client supplied file name to something usable on
// any filesystem: the base name with every character outside
// [A-Za-z0-9._-] replaced by a single underscore.
func SafeName(original string) string {
	base := baseName(original)
	var sb strings.Builder
	for _, c := range base {
		if sb.Len() >= maxSafeName {
			break
		}
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '_', c == '-':
			sb.WriteRune(c)
		default:
			sb.WriteByte('_')
		}
	}
	out := sb.String()
	if out == "" || out == "." || out == ".." {
		return "file"
	}
	return out
}

// StorageName prefixes safe with the time and 48 random bits. Two uploads
// with the same name in the same nanosecond still get different names.
func StorageName(safe string, now time.Time) (string, error) {
	var buf [randomBytes]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", StorageError{Op: "generate storage name", cause: err}
	}
	return fmt.Sprintf("%v-%v-%v", strconv.FormatInt(now.UnixNano(), 36), hex.EncodeToString(buf[:]), safe), nil
}

// StoragePath places name in one of 256 shard directories.
func StoragePath(name string) string {
	return fmt.Sprintf("%02x/%v", xxhash.Sum64String(name)&0xff, name)
}

// baseName keeps what follows the last separator, browsers on windows
// used to send full paths.
func baseName(original string) string {
	original = strings.TrimSpace(original)
	if idx := strings.LastIndexAny(original, `/\`); idx >= 0 {
		original = original[idx+1:]
	}
	return original
}

// DisplayName is the name shown back to the owner.
func DisplayName(original string) string {
	name := baseName(original)
	if len(name) > 255 {
		name = strings.ToValidUTF8(name[:255], "")
	}
	if name == "" {
		return "file"
	}
	return name
}

func checkPath(p string) error {
	if p == "" || path.IsAbs(p) || path.Clean(p) != p || strings.HasPrefix(p, "../") || p == ".." ||
		strings.HasPrefix(p, tmpDir+"/") || strings.Contains(p, `\`) {
		return InvalidPath{Path: p}
	}
	return nil
}
