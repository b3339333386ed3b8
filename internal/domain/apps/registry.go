package apps

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

//go:embed apps.yaml
var builtin []byte

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Descriptor describes an installable desktop application
type Descriptor struct {
	ID        string `json:"id" yaml:"id" toml:"id"`
	Name      string `json:"name" yaml:"name" toml:"name"`
	Icon      string `json:"icon" yaml:"icon" toml:"icon"`
	Component string `json:"component" yaml:"component" toml:"component"`
}

type file struct {
	Apps []Descriptor `yaml:"apps" toml:"apps"`
}

// Registry is an immutable ordered set of descriptors with an id index
type Registry struct {
	list  []Descriptor
	index map[string]int
}

// New validates descriptors and builds a registry preserving their order
func New(descs []Descriptor) (*Registry, error) {
	r := &Registry{
		list:  make([]Descriptor, 0, len(descs)),
		index: make(map[string]int, len(descs)),
	}

	for i, d := range descs {
		if !idPattern.MatchString(d.ID) {
			return nil, fmt.Errorf("app %d: invalid id %q", i, d.ID)
		}
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("app %q: name is required", d.ID)
		}
		if _, dup := r.index[d.ID]; dup {
			return nil, fmt.Errorf("app %q: duplicate id", d.ID)
		}
		r.index[d.ID] = len(r.list)
		r.list = append(r.list, d)
	}

	return r, nil
}

// Builtin returns the registry compiled into the binary
func Builtin() *Registry {
	r, err := Parse(builtin, ".yaml")
	if err != nil {
		panic(fmt.Sprintf("apps: builtin registry: %v", err))
	}
	return r
}

// Load reads a registry file, or returns the builtin registry for an empty path
func Load(path string) (*Registry, error) {
	if path == "" {
		return Builtin(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read apps file: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a registry document; ext selects the format (.yaml, .yml, .toml)
func Parse(data []byte, ext string) (*Registry, error) {
	var f file

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse apps yaml: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse apps toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported apps file format %q", ext)
	}

	if len(f.Apps) == 0 {
		return nil, fmt.Errorf("apps file declares no apps")
	}
	return New(f.Apps)
}

// Lookup finds a descriptor by id
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	i, ok := r.index[id]
	if !ok {
		return Descriptor{}, false
	}
	return r.list[i], true
}

// List returns the descriptors in registry order
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(r.list))
	copy(out, r.list)
	return out
}

// Len returns the number of registered apps
func (r *Registry) Len() int {
	return len(r.list)
}
