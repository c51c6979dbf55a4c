package config

import (
	"gopkg.in/yaml.v3"

	"go.trai.ch/basis/internal/core/domain"
)

// Basisfile represents the structure of the basis.yaml configuration file.
type Basisfile struct {
	Version string                `yaml:"version"`
	Project string                `yaml:"project"`
	Root    string                `yaml:"root"`
	Files   map[string]StringList `yaml:"files"`
	Tasks   map[string]*TaskDTO   `yaml:"tasks"`
	Watch   WatchDTO              `yaml:"watch"`
	Reload  ReloadDTO             `yaml:"reload"`
	Notify  NotifyDTO             `yaml:"notify"`
	Media   MediaDTO              `yaml:"media"`
}

// TaskDTO represents a task definition in the configuration.
// Files names a declared file set; Source lists globs inline. At most one may be set.
type TaskDTO struct {
	DependsOn StringList `yaml:"dependsOn"`
	Files     string     `yaml:"files"`
	Source    StringList `yaml:"source"`
	Base      string     `yaml:"base"`
	Stages    []StageDTO `yaml:"stages"`
	Dest      string     `yaml:"dest"`
	Clean     StringList `yaml:"clean"`
	Reload    string     `yaml:"reload"`
}

// StageDTO is one stage entry: either a bare kind ("- svgmin") or a
// single-key mapping from kind to options ("- sass: {outputStyle: expanded}").
type StageDTO struct {
	Kind    string
	Options map[string]any
}

// UnmarshalYAML decodes both stage forms.
func (s *StageDTO) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		s.Kind = node.Value
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return domain.Tag(domain.ErrConfigParseFailed, "line", node.Line)
		}
		s.Kind = node.Content[0].Value
		return node.Content[1].Decode(&s.Options)
	default:
		return domain.Tag(domain.ErrConfigParseFailed, "line", node.Line)
	}
}

// WatchDTO configures the watch loop.
type WatchDTO struct {
	Debounce string         `yaml:"debounce"`
	Rules    []WatchRuleDTO `yaml:"rules"`
}

// WatchRuleDTO maps a file set to tasks.
type WatchRuleDTO struct {
	Files string     `yaml:"files"`
	Tasks StringList `yaml:"tasks"`
}

// ReloadDTO configures the browser reload server.
type ReloadDTO struct {
	Enabled *bool  `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Proxy   string `yaml:"proxy"`
}

// NotifyDTO configures desktop notifications.
type NotifyDTO struct {
	Enabled *bool  `yaml:"enabled"`
	Sound   *bool  `yaml:"sound"`
	Title   string `yaml:"title"`
}

// MediaDTO configures the attachment endpoint.
type MediaDTO struct {
	Database string            `yaml:"database"`
	Addr     string            `yaml:"addr"`
	BaseURL  string            `yaml:"baseURL"`
	Mimes    map[string]string `yaml:"mimes"`
}

// StringList accepts either a single string or a list of strings.
type StringList []string

// UnmarshalYAML decodes a scalar as a one-element list.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		if node.Value == "" || node.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = StringList{node.Value}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*l = list
	return nil
}
