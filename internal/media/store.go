package media

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"github.com/talkincode/adboard/pkg/common"
)

var (
	ErrNotImage   = errors.New("payload is not an image")
	ErrEmptyImage = errors.New("empty image payload")
	ErrInvalidKey = errors.New("invalid media key")
)

// Object is one stored blob
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Store keeps uploaded blobs and hands out public URLs for them
type Store interface {
	// Save writes data under dir and returns the key it was stored as
	Save(ctx context.Context, dir string, data []byte, ext string) (string, error)
	// URL returns the public URL of key
	URL(key string) string
	Delete(ctx context.Context, key string) error
	// List returns every object stored under dir
	List(ctx context.Context, dir string) ([]Object, error)
}

// DetectImage checks that data is an image and returns its file extension
func DetectImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", errors.Wrap(ErrNotImage, mtype.String())
	}
	return mtype.Extension(), nil
}

// DiskStore is a Store on the local filesystem, served statically under urlPrefix
type DiskStore struct {
	root      string
	urlPrefix string
}

func NewDiskStore(root, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create media root %s", root)
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &DiskStore{root: root, urlPrefix: urlPrefix}, nil
}

// Root returns the directory files are written to
func (s *DiskStore) Root() string {
	return s.root
}

func (s *DiskStore) Save(ctx context.Context, dir string, data []byte, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := path.Join(dir, common.UUIDBase36()+ext)
	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", errors.Wrapf(err, "create media dir for %s", key)
	}

	tmp := full + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", key)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return "", errors.Wrapf(err, "commit %s", key)
	}
	return key, nil
}

func (s *DiskStore) URL(key string) string {
	return s.urlPrefix + key
}

func (s *DiskStore) Delete(ctx context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete %s", key)
	}
	return nil
}

func (s *DiskStore) List(ctx context.Context, dir string) ([]Object, error) {
	base, err := s.resolve(dir)
	if err != nil {
		return nil, err
	}
	var objects []Object
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return fs.SkipDir
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasSuffix(p, ".part") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		objects = append(objects, Object{Key: filepath.ToSlash(rel), Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", dir)
	}
	return objects, nil
}

// resolve maps key to a path below root, refusing anything that escapes it
func (s *DiskStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", errors.Wrap(ErrInvalidKey, key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
