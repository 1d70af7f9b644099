package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var (
	fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	slugRe     = regexp.MustCompile(`[^a-z0-9]+`)
)

// File is one goose SQL migration on disk.
type File struct {
	Version int64
	Slug    string
	Path    string
}

// ListDir parses every .sql file in dir, rejecting bad names, duplicate
// versions and files missing either goose section. Files come back in
// version order.
func ListDir(dir string) ([]File, error) {
	if dir == "" {
		return nil, errors.New("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	files := make([]File, 0, len(entries))
	byVersion := make(map[int64]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		file, err := parseFile(dir, entry.Name())
		if err != nil {
			return nil, err
		}
		if prev, ok := byVersion[file.Version]; ok {
			return nil, fmt.Errorf("migrations %q and %q share version %d", prev, entry.Name(), file.Version)
		}
		byVersion[file.Version] = entry.Name()
		files = append(files, file)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

func parseFile(dir, name string) (File, error) {
	match := fileNameRe.FindStringSubmatch(name)
	if match == nil {
		return File{}, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
	}
	version, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return File{}, fmt.Errorf("migration %q: %w", name, err)
	}
	path := filepath.Join(dir, name)
	body, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read %q: %w", path, err)
	}
	for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(string(body), marker) {
			return File{}, fmt.Errorf("migration %q missing %q", name, marker)
		}
	}
	return File{Version: version, Slug: match[2], Path: path}, nil
}

// ValidateDir checks a migrations directory without touching a database.
func ValidateDir(dir string) error {
	_, err := ListDir(dir)
	return err
}

// CreateSQLMigration writes an empty goose migration named after name. The
// version is the current UTC time, bumped past the newest existing file so
// two files created in the same second never collide.
func CreateSQLMigration(dir, name string) (string, error) {
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}
	existing, err := ListDir(dir)
	if err != nil {
		return "", err
	}

	version := time.Now().UTC()
	if n := len(existing); n > 0 {
		latest, err := time.Parse(versionLayout, strconv.FormatInt(existing[n-1].Version, 10))
		if err == nil && !version.After(latest) {
			version = latest.Add(time.Second)
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version.Format(versionLayout), slug))
	body := fmt.Sprintf("-- +goose Up\n-- +goose StatementBegin\n-- %[1]s\n-- +goose StatementEnd\n\n-- +goose Down\n-- +goose StatementBegin\n-- revert %[1]s\n-- +goose StatementEnd\n", slug)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}
