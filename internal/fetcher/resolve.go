package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Resolver turns a dataset source (a local path or an http(s) URL) into a
// local file path. Downloads are cached under CacheDir and revalidated with
// their ETag; ZIP archives are extracted and searched for the wanted file type.
type Resolver struct {
	Fetcher  Fetcher
	CacheDir string
}

// NewResolver creates a Resolver backed by f and caching into cacheDir.
func NewResolver(f Fetcher, cacheDir string) *Resolver {
	return &Resolver{Fetcher: f, CacheDir: cacheDir}
}

// IsRemote reports whether source is an http(s) URL.
func IsRemote(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Resolve returns a local path for source. When the resolved file is a ZIP
// archive and ext is not ".zip", the archive is extracted and the first file
// with extension ext is returned.
func (r *Resolver) Resolve(ctx context.Context, source, ext string) (string, error) {
	if source == "" {
		return "", eris.New("resolve: empty source")
	}

	local := source
	if IsRemote(source) {
		p, err := r.download(ctx, source)
		if err != nil {
			return "", err
		}
		local = p
	} else if _, err := os.Stat(local); err != nil {
		return "", eris.Wrapf(err, "resolve: stat %s", local)
	}

	if !strings.EqualFold(filepath.Ext(local), ".zip") || strings.EqualFold(ext, ".zip") {
		return local, nil
	}

	destDir := filepath.Join(r.cacheDir(), cacheKey(local)+"_extract")
	files, err := ExtractZIP(local, destDir)
	if err != nil {
		return "", eris.Wrapf(err, "resolve: extract %s", local)
	}
	found, err := FindFileByExt(files, ext)
	if err != nil {
		return "", eris.Wrapf(err, "resolve: %s", source)
	}
	zap.L().Debug("resolved archive member",
		zap.String("source", source),
		zap.String("path", found),
	)
	return found, nil
}

func (r *Resolver) cacheDir() string {
	if r.CacheDir != "" {
		return r.CacheDir
	}
	return filepath.Join(os.TempDir(), "geothermal-cache")
}

func (r *Resolver) download(ctx context.Context, rawURL string) (string, error) {
	if r.Fetcher == nil {
		return "", eris.New("resolve: remote source without a fetcher")
	}

	name := "download"
	if u, err := url.Parse(rawURL); err == nil {
		if b := path.Base(u.Path); b != "" && b != "/" && b != "." {
			name = b
		}
	}
	dest := filepath.Join(r.cacheDir(), cacheKey(rawURL)+"-"+name)
	etagPath := dest + ".etag"

	cached := fileExists(dest)
	var etag string
	if cached {
		if b, err := os.ReadFile(etagPath); err == nil {
			etag = strings.TrimSpace(string(b))
		}
	}

	body, newETag, changed, err := r.Fetcher.DownloadIfChanged(ctx, rawURL, etag)
	if err != nil {
		if cached {
			zap.L().Warn("download failed, using cached copy",
				zap.String("url", rawURL),
				zap.String("path", dest),
				zap.Error(err),
			)
			return dest, nil
		}
		return "", eris.Wrapf(err, "resolve: download %s", rawURL)
	}
	if !changed {
		zap.L().Debug("cached download is current", zap.String("url", rawURL))
		return dest, nil
	}
	defer body.Close() //nolint:errcheck

	n, err := writeFileAtomic(dest, body)
	if err != nil {
		return "", eris.Wrapf(err, "resolve: save %s", rawURL)
	}
	if newETag != "" {
		if err := os.WriteFile(etagPath, []byte(newETag), 0o644); err != nil {
			return "", eris.Wrap(err, "resolve: write etag")
		}
	} else if err := os.Remove(etagPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", eris.Wrap(err, "resolve: remove stale etag")
	}

	zap.L().Info("downloaded source",
		zap.String("url", rawURL),
		zap.String("path", dest),
		zap.Int64("bytes", n),
	)
	return dest, nil
}

func cacheKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
