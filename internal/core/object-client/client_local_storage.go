package objectclient

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/markdave123-py/ivyready/internal/core"
)

// PublicUploadsPrefix is the URL path the HTTP layer serves UPLOAD_DIR under.
const PublicUploadsPrefix = "/uploads"

// LocalClient writes attachments to a directory on disk.
type LocalClient struct {
	root string
	now  func() time.Time
}

func NewLocalClient(root string) *LocalClient {
	return &LocalClient{root: root, now: time.Now}
}

// Save writes data to <root>/<subfolder>/<unix-millis>-<sanitized name> and
// returns its public path.
func (c *LocalClient) Save(ctx context.Context, data io.Reader, originalName string, size int64, subfolder string) (*core.SavedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(c.root, subfolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create upload dir %s", dir)
	}

	name := StoredFileName(c.now(), originalName)
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "create upload file")
	}

	written, err := io.Copy(f, data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, errors.Wrapf(err, "write upload file %s", name)
	}
	if size <= 0 {
		size = written
	}

	return &core.SavedFile{
		Reference:  path.Join(PublicUploadsPrefix, filepath.ToSlash(subfolder), name),
		StoredName: name,
		SizeLabel:  FormatSize(size),
	}, nil
}

// Delete removes a file previously returned by Save. Missing files are not an error.
func (c *LocalClient) Delete(ctx context.Context, reference string) error {
	cleaned := path.Clean(reference)
	rel, ok := strings.CutPrefix(cleaned, PublicUploadsPrefix+"/")
	if !ok || rel == "" || strings.HasPrefix(rel, "..") {
		return errors.Errorf("reference %q is not an upload path", reference)
	}
	err := os.Remove(filepath.Join(c.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove upload %s", rel)
	}
	return nil
}

var _ core.ObjectClient = (*LocalClient)(nil)
