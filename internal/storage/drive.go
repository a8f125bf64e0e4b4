// Package storage keeps archived attachments on the local filesystem in a
// {scope}/{kind}/{file} hierarchy and hands out read-only share links for
// whole conversation folders.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/chat-archiver/internal/repo"
)

var (
	// ErrNotFound is returned for unknown share tokens and missing paths.
	ErrNotFound = errors.New("not found")
	// ErrBadPath is returned for paths escaping a shared folder.
	ErrBadPath = errors.New("invalid path")
)

// maxNameAttempts bounds the suffixes tried when a filename is taken.
const maxNameAttempts = 1000

// Drive is a folder store rooted at Root.
type Drive struct {
	Root          string
	PublicBaseURL string
	DB            *gorm.DB
}

// NewDrive creates root if needed.
func NewDrive(root, publicBaseURL string, db *gorm.DB) (*Drive, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Drive{Root: root, PublicBaseURL: strings.TrimRight(publicBaseURL, "/"), DB: db}, nil
}

// Put writes data to {scope}/{kind}/{name}, creating folders on demand. An
// existing file is never replaced; a numbered suffix is added instead. It
// returns the stored path relative to Root, using forward slashes.
func (d *Drive) Put(_ context.Context, scopeID, kind, name string, data []byte) (string, error) {
	scope, k, base := cleanElem(scopeID), cleanElem(kind), cleanElem(name)
	dir := filepath.Join(d.Root, scope, k)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}

	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 0; i < maxNameAttempts; i++ {
		candidate := base
		if i > 0 {
			candidate = stem + " (" + strconv.Itoa(i) + ")" + ext
		}
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create file: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			return "", fmt.Errorf("write file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close file: %w", err)
		}
		return path.Join(scope, k, candidate), nil
	}
	return "", fmt.Errorf("no free name for %q in %s/%s", base, scope, k)
}

// FolderExists reports whether anything was ever archived for scopeID.
func (d *Drive) FolderExists(_ context.Context, scopeID string) (bool, error) {
	fi, err := os.Stat(filepath.Join(d.Root, cleanElem(scopeID)))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}

// Share makes the scope folder link-readable and returns its URL. Calling it
// again returns the same URL.
func (d *Drive) Share(ctx context.Context, scopeID string) (string, error) {
	s, err := repo.EnsureShare(ctx, d.DB, cleanElem(scopeID))
	if err != nil {
		return "", err
	}
	return d.PublicBaseURL + "/shared/" + s.Token + "/", nil
}

// ResolveShare maps a share token to its scope.
func (d *Drive) ResolveShare(ctx context.Context, token string) (string, error) {
	s, err := repo.GetShareByToken(ctx, d.DB, token)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return s.ScopeID, nil
}

// Entry is one item of a folder listing.
type Entry struct {
	Name    string    `json:"name"`
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Stat returns info for rel inside the scope folder.
func (d *Drive) Stat(scopeID, rel string) (fs.FileInfo, error) {
	p, err := d.resolve(scopeID, rel)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return fi, err
}

// Open opens the file at rel inside the scope folder.
func (d *Drive) Open(scopeID, rel string) (*os.File, error) {
	p, err := d.resolve(scopeID, rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// List returns the entries of the folder at rel, folders first then by name.
func (d *Drive) List(scopeID, rel string) ([]Entry, error) {
	p, err := d.resolve(scopeID, rel)
	if err != nil {
		return nil, err
	}
	des, err := os.ReadDir(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(des))
	for _, de := range des {
		fi, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{Name: de.Name(), IsDir: de.IsDir(), Size: fi.Size(), ModTime: fi.ModTime().UTC()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDir != out[j].IsDir {
			return out[i].IsDir
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// resolve joins rel onto the scope folder, rejecting anything that is not a
// clean relative path.
func (d *Drive) resolve(scopeID, rel string) (string, error) {
	rel = strings.Trim(rel, "/")
	if rel == "" {
		rel = "."
	}
	if !fs.ValidPath(rel) || strings.Contains(rel, "\\") {
		return "", ErrBadPath
	}
	return filepath.Join(d.Root, cleanElem(scopeID), filepath.FromSlash(rel)), nil
}

// cleanElem reduces s to a single safe path element.
func cleanElem(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	switch s {
	case "", ".", "..":
		return "_"
	}
	return s
}
