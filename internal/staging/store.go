// Package staging manages the local holding area for downloaded-but-not-yet-
// imported documents. The staging directory doubles as the pipeline's work
// queue and crash-recovery checkpoint: enumerating it at any time yields
// exactly the set of documents still awaiting import.
//
// Layout under the staging root:
//
//	<uid>.xml             staged document, one per queue item
//	assets/<uid>/<name>   media assets, uid subdir resolves name collisions
//	imported/<uid>.xml    archived documents after successful import
package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/redmaple/streamsync/internal/apperr"
	"github.com/redmaple/streamsync/internal/fetch"
)

const (
	docExt       = ".xml"
	assetsDir    = "assets"
	importedDir  = "imported"
	maxDedupeTry = 1000
)

// Doc is one staged document awaiting import.
type Doc struct {
	UID  string `json:"uid"`
	Path string `json:"path"`
}

// Store is a staging directory on the local filesystem.
type Store struct {
	root string
}

// NewStore creates a Store rooted at dir, creating the directory tree if it
// does not exist yet.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("staging: resolve root: %w", err)
	}
	for _, d := range []string{abs, filepath.Join(abs, assetsDir), filepath.Join(abs, importedDir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("staging: create %s: %w", d, err)
		}
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute staging root.
func (s *Store) Root() string { return s.root }

// AssetsRoot returns the directory assets are downloaded under; the HTTP
// layer serves it so rewritten document links resolve publicly.
func (s *Store) AssetsRoot() string { return filepath.Join(s.root, assetsDir) }

// DocPath returns the stable staging path for a uid's document. Re-downloading
// the same uid overwrites in place rather than staging a duplicate.
func (s *Store) DocPath(uid string) (string, error) {
	if err := checkUID(uid); err != nil {
		return "", err
	}
	return filepath.Join(s.root, uid+docExt), nil
}

// AssetPath returns the staging path for one of a uid's assets. Only the base
// name of fileName is used, so a hostile remote name cannot escape the root.
func (s *Store) AssetPath(uid, fileName string) (string, error) {
	if err := checkUID(uid); err != nil {
		return "", err
	}
	base := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == string(os.PathSeparator) || base == "" {
		return "", fmt.Errorf("staging: unusable asset name %q", fileName)
	}
	return filepath.Join(s.root, assetsDir, uid, base), nil
}

// Put stages raw document bytes for uid, writing atomically.
func (s *Store) Put(uid string, r io.Reader) (Doc, error) {
	path, err := s.DocPath(uid)
	if err != nil {
		return Doc{}, err
	}
	if err := fetch.WriteAtomic(path, r); err != nil {
		return Doc{}, err
	}
	return Doc{UID: uid, Path: path}, nil
}

// ListUnimported returns every staged document not yet archived, in stable
// (lexical) order. The enumeration survives process restarts: whatever is on
// disk is the pending set. Temp files from in-flight downloads never appear
// because writes upstream are atomic.
func (s *Store) ListUnimported() ([]Doc, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("staging: list: %w", err)
	}
	var out []Doc
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), docExt) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, Doc{
			UID:  strings.TrimSuffix(e.Name(), docExt),
			Path: filepath.Join(s.root, e.Name()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

// Read returns the raw bytes of a staged document.
func (s *Store) Read(doc Doc) ([]byte, error) {
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("staging: read %s: %w", doc.UID, err)
	}
	return data, nil
}

// MarkImported relocates a staged document into the archive subdirectory and
// returns the archive path. An existing archived copy is never clobbered: the
// target name gets a numeric suffix instead.
func (s *Store) MarkImported(doc Doc) (string, error) {
	base := filepath.Base(doc.Path)
	target := filepath.Join(s.root, importedDir, base)

	for i := 1; fileExists(target); i++ {
		if i >= maxDedupeTry {
			return "", fmt.Errorf("staging: archive %s: no free target name: %w", base, apperr.ErrConflict)
		}
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		target = filepath.Join(s.root, importedDir, fmt.Sprintf("%s-%d%s", stem, i, ext))
	}

	if err := os.Rename(doc.Path, target); err != nil {
		return "", fmt.Errorf("staging: archive %s: %w", doc.UID, err)
	}
	return target, nil
}

// checkUID rejects uids that could escape the staging root when used as a
// path component.
func checkUID(uid string) error {
	if uid == "" || uid == "." || uid == ".." ||
		strings.ContainsAny(uid, `/\`) || strings.HasPrefix(uid, ".") {
		return fmt.Errorf("staging: invalid uid %q", uid)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
