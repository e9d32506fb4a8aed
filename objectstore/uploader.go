package objectstore

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"ali-crawler/metrics"
	"ali-crawler/utils"
)

// Uploader copies a local directory tree into a Store.
type Uploader struct {
	store  Store
	logger *utils.Logger
}

func NewUploader(store Store, logger *utils.Logger) *Uploader {
	return &Uploader{store: store, logger: logger}
}

// UploadDir uploads every regular file under root to prefix/<relative path>,
// overwriting existing objects. Keys always use forward slashes. The first
// failing file aborts the walk. It returns the uploaded keys in walk order.
func (u *Uploader) UploadDir(ctx context.Context, root, prefix string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("upload %s: not a directory", root)
	}

	var keys []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key := ObjectKey(prefix, rel)
		if err := u.uploadFile(ctx, p, key); err != nil {
			return err
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return keys, fmt.Errorf("upload %s: %w", root, err)
	}

	u.logger.Info("[uploader] Uploaded %d files from %s under %s", len(keys), root, prefix)
	return keys, nil
}

func (u *Uploader) uploadFile(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	res, err := u.store.Put(ctx, &PutInput{
		Key:         key,
		ContentType: contentType(localPath),
		Size:        info.Size(),
		Data:        f,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	metrics.ObjectsUploaded.Inc()

	u.logger.Info("[uploader] Uploaded %s to %s", localPath, res.URL)
	return nil
}

// ObjectKey joins prefix and a relative OS path into a slash-separated key.
func ObjectKey(prefix, rel string) string {
	rel = filepath.ToSlash(rel)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}

func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	}
	if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
