package contextsource

import (
	"github.com/harunnryd/kotoba/internal/errors"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// FileEntry is one context entry in a YAML context file.
type FileEntry struct {
	Value    string      `koanf:"value"`
	Children []FileEntry `koanf:"children"`
}

type contextFile struct {
	Entries []FileEntry `koanf:"entries"`
}

// LoadFile reads a YAML context file into r and returns the number of
// entries added. The file looks like:
//
//	entries:
//	  - value: "Current user: alice"
//	    children:
//	      - value: "Plan: pro"
func LoadFile(r *Registry, path string) (int, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return 0, errors.WrapWithCategory(err, "load context file "+path, errors.ErrConfig)
	}

	var cf contextFile
	if err := k.Unmarshal("", &cf); err != nil {
		return 0, errors.WrapWithCategory(err, "decode context file "+path, errors.ErrConfig)
	}

	return r.AddEntries(cf.Entries, "")
}

// AddEntries adds a tree of entries under parentID.
func (r *Registry) AddEntries(entries []FileEntry, parentID string) (int, error) {
	added := 0
	for _, e := range entries {
		id, err := r.AddContext(e.Value, parentID)
		if err != nil {
			return added, err
		}
		added++

		n, err := r.AddEntries(e.Children, id)
		added += n
		if err != nil {
			return added, err
		}
	}
	return added, nil
}
