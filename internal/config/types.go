// Package config resolves a workspace's declarative configuration:
// discovering the nearest .workspace.yml, merging it with the user's
// config.yml, and normalizing the result into a ResolvedWorkspaceConfig.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// RepoConfig describes the repository to clone into a workspace.
type RepoConfig struct {
	Remote    string   `yaml:"remote,omitempty"`
	Branch    string   `yaml:"branch,omitempty"`
	CloneArgs []string `yaml:"cloneArgs,omitempty"`
}

// BootstrapScript is the normalized form of a raw bootstrap.scripts entry:
// either a bare path string or an explicit {path, source} object. An entry
// without a source is tagged by mergeBootstrapScripts with the file it came
// from ("project" or "user").
type BootstrapScript struct {
	Path   string `yaml:"path" json:"path"`
	Source string `yaml:"source,omitempty" json:"source"`
}

// UnmarshalYAML accepts either a bare string or a {path, source} mapping.
func (b *BootstrapScript) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		b.Path = node.Value
		return nil
	}
	var obj struct {
		Path   string `yaml:"path"`
		Source string `yaml:"source"`
	}
	if err := node.Decode(&obj); err != nil {
		return fmt.Errorf("bootstrap script entry must be a string or {path, source}: %w", err)
	}
	b.Path = obj.Path
	b.Source = obj.Source
	return nil
}

// ForwardRaw is a raw forwards entry: an int, a range/string, or an
// {internal: ...} object. Normalization happens in normalizeForwards.
type ForwardRaw struct {
	Int    *int
	Str    string
	Object map[string]interface{}
}

func (f *ForwardRaw) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var i int
		if err := node.Decode(&i); err == nil {
			f.Int = &i
			return nil
		}
		var s string
		if err := node.Decode(&s); err == nil {
			f.Str = s
			return nil
		}
		return fmt.Errorf("unrecognized forwards scalar")
	case yaml.MappingNode:
		var m map[string]interface{}
		if err := node.Decode(&m); err != nil {
			return err
		}
		f.Object = m
		return nil
	default:
		return fmt.Errorf("unrecognized forwards entry kind")
	}
}

// BootstrapConfig holds the raw (pre-merge) bootstrap.scripts list.
type BootstrapConfig struct {
	Scripts []BootstrapScript `yaml:"scripts,omitempty"`
}

// ProjectConfig is the raw declarative form read from .workspace.yml.
type ProjectConfig struct {
	Repo                  *RepoConfig     `yaml:"repo,omitempty"`
	Forwards              []ForwardRaw    `yaml:"forwards,omitempty"`
	Mounts                []string        `yaml:"mounts,omitempty"`
	Bootstrap             BootstrapConfig `yaml:"bootstrap,omitempty"`
	MountAgentsCredentials *bool          `yaml:"mountAgentsCredentials,omitempty"`
}

// RepoPattern is one entry of ssh.repos, preserving declaration order so
// the SSH Key Selector can iterate wildcard patterns in insertion order.
type RepoPattern struct {
	Pattern string
	KeyPath string
}

// SSHConfig is the user-config-only ssh key selection policy.
type SSHConfig struct {
	DefaultKey string        `yaml:"defaultKey,omitempty"`
	Repos      []RepoPattern `yaml:"repos,omitempty"`
}

// UnmarshalYAML decodes ssh.repos as an ordered mapping, preserving the
// declaration order of its keys.
func (s *SSHConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		DefaultKey string    `yaml:"defaultKey"`
		Repos      yaml.Node `yaml:"repos"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	s.DefaultKey = raw.DefaultKey
	if raw.Repos.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(raw.Repos.Content); i += 2 {
		s.Repos = append(s.Repos, RepoPattern{
			Pattern: raw.Repos.Content[i].Value,
			KeyPath: raw.Repos.Content[i+1].Value,
		})
	}
	return nil
}

// UserConfig is the user-wide config.yml: the same schema as ProjectConfig
// plus ssh key-selection settings.
type UserConfig struct {
	Repo                  *RepoConfig     `yaml:"repo,omitempty"`
	Forwards              []ForwardRaw    `yaml:"forwards,omitempty"`
	Mounts                []string        `yaml:"mounts,omitempty"`
	Bootstrap             BootstrapConfig `yaml:"bootstrap,omitempty"`
	MountAgentsCredentials *bool          `yaml:"mountAgentsCredentials,omitempty"`
	SSH                   SSHConfig       `yaml:"ssh,omitempty"`
}

// Mount is a normalized host-path-to-container-path binding.
type Mount struct {
	Source string
	Target string
	Mode   string // "ro" or "rw"
}

// StatePaths are the derived on-disk locations for a single workspace.
type StatePaths struct {
	Root              string
	SSHDir            string
	KeyPath           string
	RuntimeConfigPath string
}

// ResolvedWorkspaceConfig is the synthesized form passed to lifecycle
// operations.
type ResolvedWorkspaceConfig struct {
	Name         string
	ContainerName string
	ImageTag     string
	Repo         RepoConfig
	Forwards     []int
	Mounts       []Mount
	Bootstrap    []BootstrapScript
	State        StatePaths
	BuildContext string
	ConfigDir    string
}
