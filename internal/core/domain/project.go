package domain

import "time"

// DefaultDebounce is the default idle period before a watch rule fires.
const DefaultDebounce = time.Second

// WatchRule maps a file set to the tasks re-run when a matching file changes.
type WatchRule struct {
	Name  string
	Files FileSet
	Tasks []InternedString
}

// WatchSettings configures the watch loop.
type WatchSettings struct {
	Debounce time.Duration
}

// ReloadSettings configures the browser reload server.
type ReloadSettings struct {
	Enabled bool
	Addr    string
	Proxy   string
}

// NotifySettings configures failure notifications.
type NotifySettings struct {
	Enabled bool
	Sound   bool
	Title   string
}

// MediaSettings configures the runtime integration endpoint.
type MediaSettings struct {
	Database    string
	Addr        string
	BaseURL     string
	UploadMimes map[string]string
}

// Project is the immutable configuration of a theme build.
// It is produced once by the configuration loader and only read afterwards.
type Project struct {
	Name       string
	Root       string
	FileSets   map[string]FileSet
	Graph      *Graph
	WatchRules []WatchRule
	Watch      WatchSettings
	Reload     ReloadSettings
	Notify     NotifySettings
	Media      MediaSettings
}

// FileSet returns the named file set.
func (p *Project) FileSet(name string) (FileSet, bool) {
	fs, ok := p.FileSets[name]
	return fs, ok
}
