package detect

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quakeview/internal/util/logx"
)

// cacheKey derives a stable key from the header row.
func cacheKey(header []string) (string, error) {
	if len(header) == 0 {
		return "", errors.New("empty header")
	}
	h := sha1.Sum([]byte(strings.Join(header, "\x1f")))
	return hex.EncodeToString(h[:]), nil
}

func cachePath(dir string, header []string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("no cache dir")
	}
	key, err := cacheKey(header)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("mapping_%s.json", key)), nil
}

// LoadMappingFromCache returns a previously resolved mapping for header.
func LoadMappingFromCache(dir string, header []string) (Mapping, bool) {
	p, err := cachePath(dir, header)
	if err != nil {
		return nil, false
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, false
	}
	defer f.Close()
	var m Mapping
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, false
	}
	return m, true
}

// SaveMappingToCache writes the mapping atomically.
func SaveMappingToCache(dir string, header []string, m Mapping) error {
	p, err := cachePath(dir, header)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		return err
	}
	logx.Infof("detect: cached header mapping saved to %s", p)
	return nil
}
