package export

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// File is one encoded output.
type File struct {
	Name string
	Data []byte
}

// JSONFile encodes v as compact JSON.
func JSONFile(name string, v any) (File, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return File{}, eris.Wrapf(err, "export: encode %s", name)
	}
	return File{Name: name, Data: data}, nil
}

// WriteFiles writes every file into dir. All files are first staged as
// temporaries in dir and only renamed into place once every one has been
// written, so a failure never leaves a mix of old and new outputs behind
// from the staging step. Returns the final paths in input order.
func WriteFiles(dir string, files []File) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create output dir %s", dir)
	}

	staged := make([]string, 0, len(files))
	cleanup := func() {
		for _, p := range staged {
			_ = os.Remove(p)
		}
	}

	for _, f := range files {
		if f.Name == "" || filepath.Base(f.Name) != f.Name {
			cleanup()
			return nil, eris.Errorf("export: invalid output name %q", f.Name)
		}
		tmp, err := stage(dir, f)
		if err != nil {
			cleanup()
			return nil, err
		}
		staged = append(staged, tmp)
	}

	paths := make([]string, len(files))
	for i, f := range files {
		final := filepath.Join(dir, f.Name)
		if err := os.Rename(staged[i], final); err != nil {
			cleanup()
			return nil, eris.Wrapf(err, "export: move %s into place", f.Name)
		}
		paths[i] = final
		zap.L().Debug("wrote output", zap.String("path", final), zap.Int("bytes", len(f.Data)))
	}
	return paths, nil
}

func stage(dir string, f File) (string, error) {
	tmp, err := os.CreateTemp(dir, "."+f.Name+".*")
	if err != nil {
		return "", eris.Wrapf(err, "export: stage %s", f.Name)
	}
	if _, err := tmp.Write(f.Data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", eris.Wrapf(err, "export: write %s", f.Name)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", eris.Wrapf(err, "export: close %s", f.Name)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return "", eris.Wrapf(err, "export: chmod %s", f.Name)
	}
	return tmp.Name(), nil
}
