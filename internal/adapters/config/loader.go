// Package config provides the basis.yaml configuration loader.
package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

const (
	defaultReloadAddr = ":3000"
	defaultMediaAddr  = ":8080"
	defaultNotifyText = "Task Failed"
)

var validTaskNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+(:[a-zA-Z0-9_-]+)*$`)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
	Stages ports.StageFactory
}

var _ ports.ConfigLoader = (*Loader)(nil)

// NewLoader creates a Loader. When stages is not nil every declared stage is
// built once so that unknown kinds and bad options fail at load time.
func NewLoader(logger ports.Logger, stages ports.StageFactory) *Loader {
	return &Loader{Logger: logger, Stages: stages}
}

// DiscoverRoot walks up from cwd to the directory containing basis.yaml.
func (l *Loader) DiscoverRoot(cwd string) (string, error) {
	configPath, err := findConfiguration(cwd)
	if err != nil {
		return "", err
	}
	return filepath.Dir(configPath), nil
}

// Load finds basis.yaml from cwd and returns the validated project.
func (l *Loader) Load(cwd string) (*domain.Project, error) {
	configPath, err := findConfiguration(cwd)
	if err != nil {
		return nil, err
	}
	return l.LoadFile(configPath)
}

// LoadFile reads the configuration at configPath.
func (l *Loader) LoadFile(configPath string) (*domain.Project, error) {
	// #nosec G304 -- configPath is discovered or given by the operator
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, zerr.With(domain.Caused(domain.ErrConfigReadFailed, err), "path", configPath)
	}
	return l.Parse(data, configPath)
}

// Parse builds the project from the YAML document. configPath anchors the root.
func (l *Loader) Parse(data []byte, configPath string) (*domain.Project, error) {
	var file Basisfile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.With(domain.Caused(domain.ErrConfigParseFailed, err), "path", configPath)
	}

	root := resolveRoot(configPath, file.Root)
	project := &domain.Project{
		Name:     file.Project,
		Root:     root,
		FileSets: make(map[string]domain.FileSet, len(file.Files)),
	}
	if project.Name == "" {
		project.Name = filepath.Base(root)
	}

	for name, globs := range file.Files {
		project.FileSets[name] = domain.ParseFileSet(name, globs)
	}

	graph, err := l.buildGraph(root, &file, project.FileSets)
	if err != nil {
		return nil, err
	}
	project.Graph = graph

	if err := l.buildWatch(&file, project); err != nil {
		return nil, err
	}

	project.Reload = domain.ReloadSettings{
		Enabled: boolOr(file.Reload.Enabled, true),
		Addr:    stringOr(file.Reload.Addr, defaultReloadAddr),
		Proxy:   normalizeProxy(file.Reload.Proxy),
	}
	project.Notify = domain.NotifySettings{
		Enabled: boolOr(file.Notify.Enabled, true),
		Sound:   boolOr(file.Notify.Sound, true),
		Title:   stringOr(file.Notify.Title, defaultNotifyText),
	}
	project.Media = domain.MediaSettings{
		Database:    stringOr(file.Media.Database, filepath.ToSlash(domain.DefaultMediaDBPath())),
		Addr:        stringOr(file.Media.Addr, defaultMediaAddr),
		BaseURL:     strings.TrimSuffix(file.Media.BaseURL, "/"),
		UploadMimes: domain.UploadMimes(file.Media.Mimes),
	}

	return project, nil
}

func (l *Loader) buildGraph(root string, file *Basisfile, sets map[string]domain.FileSet) (*domain.Graph, error) {
	g := domain.NewGraph()
	g.SetRoot(root)

	names := make([]string, 0, len(file.Tasks))
	for name := range file.Tasks {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		dto := file.Tasks[name]
		if dto == nil {
			dto = &TaskDTO{}
		}
		task, err := l.buildTask(root, name, dto, sets)
		if err != nil {
			return nil, domain.Tag(err, "task", name)
		}
		if err := g.AddTask(task); err != nil {
			return nil, err
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (l *Loader) buildTask(root, name string, dto *TaskDTO, sets map[string]domain.FileSet) (*domain.Task, error) {
	if err := validateTaskName(name); err != nil {
		return nil, err
	}

	task := &domain.Task{
		Name:         domain.NewInternedString(name),
		Dependencies: domain.NewInternedStrings(dto.DependsOn),
		Clean:        cleanGlobs(dto.Clean),
	}

	switch {
	case dto.Files != "" && len(dto.Source) > 0:
		return nil, domain.Tag(domain.ErrConfigParseFailed, "reason", "task declares both files and source")
	case dto.Files != "":
		set, ok := sets[dto.Files]
		if !ok {
			return nil, domain.Tag(domain.ErrUnknownFileSet, "file_set", dto.Files)
		}
		task.Source = set
	case len(dto.Source) > 0:
		task.Source = domain.ParseFileSet(name, dto.Source)
	}

	mode, err := domain.ParseReloadMode(dto.Reload)
	if err != nil {
		return nil, err
	}
	task.Reload = mode

	emits := false
	for _, s := range dto.Stages {
		spec := domain.StageSpec{Kind: domain.StageKind(s.Kind), Options: domain.Options(s.Options)}
		if l.Stages != nil {
			if _, err := l.Stages.New(root, spec); err != nil {
				return nil, err
			}
		}
		emits = emits || spec.Kind.EmitsFiles()
		task.Stages = append(task.Stages, spec)
	}

	if len(task.Stages) > 0 && task.Source.IsEmpty() {
		return nil, domain.Tag(domain.ErrConfigParseFailed, "reason", "task with stages requires files or source")
	}

	if dto.Dest != "" {
		dest, err := cleanRelative(dto.Dest)
		if err != nil {
			return nil, err
		}
		task.Dest = dest
	} else if emits {
		return nil, domain.ErrMissingDestination
	}

	task.Base = dto.Base
	if task.Base == "" && !task.Source.IsEmpty() {
		task.Base = globBase(task.Source.Include[0])
	}
	task.Base = path.Clean(strings.TrimPrefix(filepath.ToSlash(task.Base), "./"))

	return task, nil
}

func (l *Loader) buildWatch(file *Basisfile, project *domain.Project) error {
	debounce, err := parseDuration(file.Watch.Debounce)
	if err != nil {
		return err
	}
	project.Watch = domain.WatchSettings{Debounce: debounce}

	for i, rule := range file.Watch.Rules {
		set, ok := project.FileSets[rule.Files]
		if !ok {
			return zerr.With(domain.Tag(domain.ErrUnknownFileSet, "file_set", rule.Files), "watch_rule", i)
		}
		for _, name := range rule.Tasks {
			if _, ok := project.Graph.GetTask(domain.NewInternedString(name)); !ok {
				return zerr.With(domain.Tag(domain.ErrTaskNotFound, "task", name), "watch_rule", i)
			}
		}
		project.WatchRules = append(project.WatchRules, domain.WatchRule{
			Name:  rule.Files,
			Files: set,
			Tasks: domain.NewInternedStrings(rule.Tasks),
		})
	}

	if len(project.WatchRules) == 0 && l.Logger != nil && len(file.Tasks) > 0 {
		l.Logger.Warn(fmt.Sprintf("%s declares no watch rules", domain.ConfigFileName))
	}
	return nil
}

// findConfiguration walks up from cwd until it finds basis.yaml.
func findConfiguration(cwd string) (string, error) {
	dir, err := filepath.Abs(cwd)
	if err != nil {
		return "", zerr.With(domain.Caused(domain.ErrConfigNotFound, err), "cwd", cwd)
	}
	for {
		candidate := filepath.Join(dir, domain.ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", domain.Tag(domain.ErrConfigNotFound, "cwd", cwd)
		}
		dir = parent
	}
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if abs, err := filepath.Abs(configDir); err == nil {
		configDir = abs
	}
	if configuredRoot == "" {
		return filepath.Clean(configDir)
	}
	if filepath.IsAbs(configuredRoot) {
		return filepath.Clean(configuredRoot)
	}
	return filepath.Clean(filepath.Join(configDir, configuredRoot))
}

// validateTaskName accepts colon-separated segments such as "clean:styles".
func validateTaskName(name string) error {
	if !validTaskNameRegex.MatchString(name) {
		return domain.Tag(domain.ErrInvalidTaskName, "task_name", name)
	}
	return nil
}

// globBase returns the directory part of a glob before its first wildcard segment.
// A literal path yields its parent directory.
func globBase(pattern string) string {
	pattern = strings.TrimPrefix(pattern, "./")
	segments := strings.Split(pattern, "/")
	base := make([]string, 0, len(segments))
	for _, seg := range segments[:len(segments)-1] {
		if strings.ContainsAny(seg, "*?[{") {
			break
		}
		base = append(base, seg)
	}
	if len(base) == 0 {
		return "."
	}
	return strings.Join(base, "/")
}

// cleanRelative normalizes a destination and rejects paths leaving the root.
func cleanRelative(p string) (string, error) {
	p = filepath.ToSlash(p)
	if path.IsAbs(p) {
		return "", domain.Tag(domain.ErrOutputPathOutsideRoot, "path", p)
	}
	cleaned := path.Clean(p)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", domain.Tag(domain.ErrOutputPathOutsideRoot, "path", p)
	}
	return cleaned, nil
}

func cleanGlobs(globs []string) []string {
	if len(globs) == 0 {
		return nil
	}
	out := make([]string, 0, len(globs))
	for _, g := range globs {
		neg, rest := "", g
		if r, ok := strings.CutPrefix(g, "!"); ok {
			neg, rest = "!", r
		}
		out = append(out, neg+strings.TrimPrefix(rest, "./"))
	}
	return out
}

// parseDuration reads a Go duration ("1s") or a plain number of milliseconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.DefaultDebounce, nil
	}
	if ms, err := strconv.Atoi(s); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, domain.Tag(domain.ErrInvalidDuration, "duration", s)
	}
	return d, nil
}

// normalizeProxy adds a scheme to bare host names such as "testing.dev".
func normalizeProxy(proxy string) string {
	proxy = strings.TrimSpace(proxy)
	if proxy == "" || strings.Contains(proxy, "://") {
		return proxy
	}
	return "http://" + proxy
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
