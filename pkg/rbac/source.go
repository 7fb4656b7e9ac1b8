package rbac

import (
	"context"
	"fmt"
	"io"
	"maps"

	"gopkg.in/yaml.v3"
)

type memorySource map[string]Role

// NewInMemRoleSource serves a copy of roles.
func NewInMemRoleSource(roles map[string]Role) RoleSource {
	return memorySource(maps.Clone(roles))
}

func (s memorySource) Load(context.Context) (map[string]Role, error) {
	return s, nil
}

type yamlSource struct {
	data []byte
}

// NewYAMLRoleSource parses a document of the form
//
//	roles:
//	  teacher:
//	    permissions: [students.read]
//	  supervisor:
//	    inherits: [teacher]
//	    permissions: [students.manage]
func NewYAMLRoleSource(data []byte) RoleSource {
	return yamlSource{data: data}
}

// NewYAMLRoleSourceFromReader reads the whole document from r.
func NewYAMLRoleSourceFromReader(r io.Reader) (RoleSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read roles: %w", err)
	}
	return yamlSource{data: data}, nil
}

func (s yamlSource) Load(context.Context) (map[string]Role, error) {
	var doc struct {
		Roles map[string]Role `yaml:"roles"`
	}
	if err := yaml.Unmarshal(s.data, &doc); err != nil {
		return nil, fmt.Errorf("parse roles: %w", err)
	}
	return doc.Roles, nil
}
