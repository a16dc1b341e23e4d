package segment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/errors"
)

// Default output file names.
const (
	DefaultPostingsFile   = "indice_reverso.txt"
	DefaultDictionaryFile = "dicionario.txt"
)

// Filesystem calls used by Write; tests replace them to inject failures.
var (
	link   = os.Link
	rename = os.Rename
)

// Writer replaces the postings and dictionary files in an output directory.
type Writer struct {
	dir            string
	postingsName   string
	dictionaryName string
}

// NewWriter creates a Writer for the given directory and file names. Empty
// names fall back to the defaults.
func NewWriter(dir, postingsName, dictionaryName string) *Writer {
	if postingsName == "" {
		postingsName = DefaultPostingsFile
	}
	if dictionaryName == "" {
		dictionaryName = DefaultDictionaryFile
	}
	return &Writer{dir: dir, postingsName: postingsName, dictionaryName: dictionaryName}
}

// PostingsPath is the full path of the postings file.
func (w *Writer) PostingsPath() string {
	return filepath.Join(w.dir, w.postingsName)
}

// DictionaryPath is the full path of the dictionary file.
func (w *Writer) DictionaryPath() string {
	return filepath.Join(w.dir, w.dictionaryName)
}

// Write stages both files as .tmp siblings, syncs them, and renames them into
// place. A failure removes the temp files and leaves the previous pair as it
// was, including when only the first rename went through.
func (w *Writer) Write(postings, dictionary []byte) (err error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return apperrors.Write(w.dir, fmt.Errorf("creating output directory: %w", err))
	}
	finals := [2]string{w.PostingsPath(), w.DictionaryPath()}
	datas := [2][]byte{postings, dictionary}
	var tmps []string
	defer func() {
		if err != nil {
			for _, t := range tmps {
				os.Remove(t)
			}
		}
	}()

	for i, final := range finals {
		tmp := final + ".tmp"
		tmps = append(tmps, tmp)
		if err := writeSynced(tmp, datas[i]); err != nil {
			return apperrors.Write(final, err)
		}
	}
	backups, err := backupExisting(finals[:])
	defer removeAll(backups)
	if err != nil {
		return apperrors.Write(w.dir, err)
	}
	for i, final := range finals {
		if err := rename(tmps[i], final); err != nil {
			restore(finals[:i], backups)
			return apperrors.Write(final, fmt.Errorf("renaming temp file: %w", err))
		}
	}
	syncDir(w.dir)
	return nil
}

// backupExisting hard-links each existing file to a .prev sibling so a
// failed rename can put the earlier pair back. A file that does not exist
// gets an empty entry. An existing file that cannot be linked is an error:
// renaming over it would leave nothing to restore.
func backupExisting(paths []string) ([]string, error) {
	backups := make([]string, len(paths))
	for i, p := range paths {
		if _, err := os.Lstat(p); os.IsNotExist(err) {
			continue
		}
		prev := p + ".prev"
		os.Remove(prev)
		if err := link(p, prev); err != nil {
			return backups, fmt.Errorf("backing up %s: %w", p, err)
		}
		backups[i] = prev
	}
	return backups, nil
}

func restore(renamed []string, backups []string) {
	for i, p := range renamed {
		if backups[i] == "" {
			os.Remove(p)
			continue
		}
		rename(backups[i], p)
	}
}

func removeAll(paths []string) {
	for _, p := range paths {
		if p != "" {
			os.Remove(p)
		}
	}
}

func writeSynced(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	return nil
}

// syncDir flushes the directory entry for the renames. Not every platform
// supports fsync on a directory, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	d.Sync()
	d.Close()
}

// Digest returns the hex SHA-256 of the postings blob followed by the
// dictionary blob. Identical inputs always yield identical digests.
func Digest(postings, dictionary []byte) string {
	h := sha256.New()
	h.Write(postings)
	h.Write([]byte{0})
	h.Write(dictionary)
	return hex.EncodeToString(h.Sum(nil))
}
