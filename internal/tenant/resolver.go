// Package tenant maps opaque namespace UUIDs to human-readable
// organization names via a static mapping file.
package tenant

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// mappingFile is the on-disk shape of the tenants file. JSON is the
// historical format; YAML is accepted for files with a .yaml/.yml
// extension.
type mappingFile struct {
	Tenants []struct {
		UUID             string `json:"uuid" yaml:"uuid"`
		OrganizationName string `json:"organization_name" yaml:"organization_name"`
		Name             string `json:"name" yaml:"name"`
	} `json:"tenants" yaml:"tenants"`
}

// Resolver resolves tenant namespace UUIDs to organization names.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	mapping map[string]string
}

// NewResolver builds a Resolver from an in-memory mapping.
func NewResolver(mapping map[string]string) *Resolver {
	if mapping == nil {
		mapping = map[string]string{}
	}
	return &Resolver{mapping: mapping}
}

// LoadResolver reads the tenants mapping file at path. A missing file
// yields an empty resolver and no error: the agent runs without
// organization names rather than failing the run.
func LoadResolver(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewResolver(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("tenant: reading %s: %w", path, err)
	}

	var mf mappingFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &mf); err != nil {
			return nil, fmt.Errorf("tenant: parsing %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &mf); err != nil {
			return nil, fmt.Errorf("tenant: parsing %s: %w", path, err)
		}
	}

	mapping := make(map[string]string, len(mf.Tenants))
	for _, t := range mf.Tenants {
		name := t.OrganizationName
		if name == "" {
			name = t.Name
		}
		if t.UUID != "" && name != "" {
			mapping[t.UUID] = name
		}
	}
	return NewResolver(mapping), nil
}

// Resolve returns the organization name for a namespace UUID. Misses
// fall back to the raw uuid: resolution never fails a run.
func (r *Resolver) Resolve(uuid string) string {
	if name, ok := r.mapping[uuid]; ok {
		return name
	}
	return uuid
}

// Known reports whether the uuid has an explicit mapping.
func (r *Resolver) Known(uuid string) bool {
	_, ok := r.mapping[uuid]
	return ok
}

// Len returns the number of mapped tenants.
func (r *Resolver) Len() int {
	return len(r.mapping)
}
