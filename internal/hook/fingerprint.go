package hook

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Fingerprint summarizes the on-disk state a cached manifest was parsed from.
// Two fingerprints compare equal with == exactly when nothing observable
// changed: the manifest's mtime and size, and every file under the hooks
// directory (relative path, mtime, size).
type Fingerprint struct {
	ManifestModTime int64
	ManifestSize    int64
	Files           int
	MaxModTime      int64
	Digest          [sha256.Size]byte
}

type fileStamp struct {
	rel     string
	modTime int64
	size    int64
}

// computeFingerprint stats the manifest and walks hooksDir. It returns an
// error wrapping fs.ErrNotExist when the manifest itself is absent.
func computeFingerprint(manifestPath, hooksDir string) (Fingerprint, error) {
	info, err := os.Stat(manifestPath)
	if err != nil {
		return Fingerprint{}, err
	}
	if info.IsDir() {
		return Fingerprint{}, fmt.Errorf("%s is a directory", manifestPath)
	}

	fp := Fingerprint{
		ManifestModTime: info.ModTime().UnixNano(),
		ManifestSize:    info.Size(),
	}

	var stamps []fileStamp
	err = filepath.WalkDir(hooksDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Files removed mid-walk are simply not part of the fingerprint.
			if errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		rel, err := filepath.Rel(hooksDir, path)
		if err != nil {
			return err
		}
		stamps = append(stamps, fileStamp{rel: rel, modTime: fi.ModTime().UnixNano(), size: fi.Size()})
		return nil
	})
	if err != nil {
		return Fingerprint{}, fmt.Errorf("scanning hooks dir: %w", err)
	}

	sort.Slice(stamps, func(i, j int) bool { return stamps[i].rel < stamps[j].rel })

	h := sha256.New()
	for _, s := range stamps {
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", s.rel, s.modTime, s.size)
		if s.modTime > fp.MaxModTime {
			fp.MaxModTime = s.modTime
		}
	}
	fp.Files = len(stamps)
	copy(fp.Digest[:], h.Sum(nil))
	return fp, nil
}
