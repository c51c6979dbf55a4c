package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.trai.ch/basis/internal/adapters/config"
	"go.trai.ch/basis/internal/adapters/stages"
	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports/mocks"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, domain.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newLoader() *config.Loader {
	return config.NewLoader(nil, stages.NewRegistry(nil, nil))
}

func taskNames(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Name.String()
	}
	return out
}

func TestLoad_Success(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
version: "1"
project: theme
files:
  sass: src/sass/**/*.scss
  images: [assets/images/*, "!assets/images/*.svg"]
tasks:
  clean:styles:
    clean: [./style.css, "!keep.css"]
  postcss:
    dependsOn: clean:styles
    source: src/sass/*.scss
    stages:
      - sass: {outputStyle: compressed}
      - postcss
    dest: ./
    reload: inject
  imagemin:
    files: images
    stages:
      - imagemin: {optimizationLevel: 5}
    dest: assets/images
  sass:lint:
    files: sass
    stages: [sasslint]
  default:
    dependsOn: [postcss, imagemin]
watch:
  debounce: 250
  rules:
    - files: sass
      tasks: postcss
reload:
  proxy: testing.dev
notify:
  sound: false
`)

	project, err := newLoader().Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "theme", project.Name)
	assert.Equal(t, dir, project.Root)
	assert.Equal(t, 5, project.Graph.TaskCount())

	postcss, ok := project.Graph.GetTask(domain.NewInternedString("postcss"))
	require.True(t, ok)
	assert.Equal(t, []string{"src/sass/*.scss"}, postcss.Source.Include)
	assert.Equal(t, "src/sass", postcss.Base)
	assert.Equal(t, ".", postcss.Dest)
	assert.Equal(t, domain.ReloadInject, postcss.Reload)
	require.Len(t, postcss.Stages, 2)
	assert.Equal(t, domain.StageSass, postcss.Stages[0].Kind)
	assert.Equal(t, "compressed", postcss.Stages[0].Options["outputStyle"])
	assert.Equal(t, domain.StagePostCSS, postcss.Stages[1].Kind)

	clean, _ := project.Graph.GetTask(domain.NewInternedString("clean:styles"))
	assert.Equal(t, []string{"style.css", "!keep.css"}, clean.Clean)

	images, _ := project.Graph.GetTask(domain.NewInternedString("imagemin"))
	assert.Equal(t, "images", images.Source.Name)
	assert.Equal(t, []string{"assets/images/*.svg"}, images.Source.Exclude)
	assert.Equal(t, "assets/images", images.Base)

	lint, _ := project.Graph.GetTask(domain.NewInternedString("sass:lint"))
	assert.Empty(t, lint.Dest)

	chain, err := project.Graph.Chain("default")
	require.NoError(t, err)
	assert.Equal(t, []string{"clean:styles", "postcss", "imagemin", "default"}, taskNames(chain))

	assert.Equal(t, 250*time.Millisecond, project.Watch.Debounce)
	require.Len(t, project.WatchRules, 1)
	assert.Equal(t, "sass", project.WatchRules[0].Name)
	assert.Equal(t, []domain.InternedString{domain.NewInternedString("postcss")}, project.WatchRules[0].Tasks)

	assert.True(t, project.Reload.Enabled)
	assert.Equal(t, ":3000", project.Reload.Addr)
	assert.Equal(t, "http://testing.dev", project.Reload.Proxy)
	assert.True(t, project.Notify.Enabled)
	assert.False(t, project.Notify.Sound)
	assert.Equal(t, "Task Failed", project.Notify.Title)
	assert.Equal(t, ".basis/media.db", project.Media.Database)
	assert.Equal(t, "image/svg+xml", project.Media.UploadMimes["svg"])
}

func TestLoad_DefaultConfigIsValid(t *testing.T) {
	dir := t.TempDir()
	_, err := config.WriteDefault(dir, false)
	require.NoError(t, err)

	project, err := newLoader().Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "basis", project.Name)
	assert.Equal(t, time.Second, project.Watch.Debounce)
	assert.Len(t, project.WatchRules, 5)
	assert.Equal(t, "http://testing.dev", project.Reload.Proxy)

	chain, err := project.Graph.Chain("default")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"clean:icons", "clean:styles", "concat", "postcss", "cssnano",
		"svg", "icons", "styles", "uglify", "scripts", "imagemin", "default",
	}, taskNames(chain))

	svg, _ := project.Graph.GetTask(domain.NewInternedString("svg"))
	assert.Equal(t, "assets/images/svg-icons", svg.Base)

	markup, _ := project.Graph.GetTask(domain.NewInternedString("markup"))
	assert.True(t, markup.IsReloadOnly())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "invalid yaml",
			content: "tasks: [",
			wantErr: domain.ErrConfigParseFailed,
		},
		{
			name:    "invalid task name",
			content: "tasks:\n  \"bad name\": {}\n",
			wantErr: domain.ErrInvalidTaskName,
		},
		{
			name:    "missing dependency",
			content: "tasks:\n  styles:\n    dependsOn: [cssnano]\n",
			wantErr: domain.ErrMissingDependency,
		},
		{
			name:    "cycle",
			content: "tasks:\n  a:\n    dependsOn: b\n  b:\n    dependsOn: a\n",
			wantErr: domain.ErrCycleDetected,
		},
		{
			name:    "unknown stage",
			content: "tasks:\n  a:\n    source: a.scss\n    stages: [less]\n    dest: .\n",
			wantErr: domain.ErrUnknownStage,
		},
		{
			name:    "unknown stage option",
			content: "tasks:\n  a:\n    source: a.scss\n    stages:\n      - sass: {style: nested}\n    dest: .\n",
			wantErr: domain.ErrInvalidStageOption,
		},
		{
			name:    "unknown file set",
			content: "tasks:\n  a:\n    files: sass\n",
			wantErr: domain.ErrUnknownFileSet,
		},
		{
			name:    "missing destination",
			content: "tasks:\n  a:\n    source: a.scss\n    stages: [sass]\n",
			wantErr: domain.ErrMissingDestination,
		},
		{
			name:    "destination outside root",
			content: "tasks:\n  a:\n    source: a.scss\n    stages: [sass]\n    dest: ../theme\n",
			wantErr: domain.ErrOutputPathOutsideRoot,
		},
		{
			name:    "stages without source",
			content: "tasks:\n  a:\n    stages: [sass]\n    dest: .\n",
			wantErr: domain.ErrConfigParseFailed,
		},
		{
			name:    "invalid reload mode",
			content: "tasks:\n  a:\n    reload: sometimes\n",
			wantErr: domain.ErrInvalidReloadMode,
		},
		{
			name:    "invalid debounce",
			content: "watch:\n  debounce: soon\n",
			wantErr: domain.ErrInvalidDuration,
		},
		{
			name:    "watch rule with unknown task",
			content: "files:\n  sass: a.scss\nwatch:\n  rules:\n    - {files: sass, tasks: styles}\n",
			wantErr: domain.ErrTaskNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, err := newLoader().Load(dir)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_UsesStageFactory(t *testing.T) {
	ctrl := gomock.NewController(t)
	factory := mocks.NewMockStageFactory(ctrl)
	stage := mocks.NewMockStage(ctrl)

	dir := t.TempDir()
	writeConfig(t, dir, "tasks:\n  a:\n    source: a.scss\n    stages: [sass]\n    dest: .\n")

	factory.EXPECT().
		New(dir, domain.StageSpec{Kind: domain.StageSass}).
		Return(stage, nil)

	_, err := config.NewLoader(nil, factory).Load(dir)
	require.NoError(t, err)
}

func TestLoad_WarnsWithoutWatchRules(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Warn("basis.yaml declares no watch rules")

	dir := t.TempDir()
	writeConfig(t, dir, "tasks:\n  markup:\n    reload: full\n")

	_, err := config.NewLoader(log, nil).Load(dir)
	require.NoError(t, err)
}

func TestDiscoverRoot(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "version: \"1\"\n")
	nested := filepath.Join(dir, "src", "sass")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	root, err := newLoader().DiscoverRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, dir, root)

	project, err := newLoader().Load(nested)
	require.NoError(t, err)
	assert.Equal(t, dir, project.Root)
	assert.Equal(t, filepath.Base(dir), project.Name)
}

func TestDiscoverRoot_NotFound(t *testing.T) {
	_, err := newLoader().DiscoverRoot(t.TempDir())
	require.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestLoad_RootOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "root: theme\n")

	project, err := newLoader().Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "theme"), project.Root)
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()

	path, err := config.WriteDefault(dir, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, domain.ConfigFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig, data)

	_, err = config.WriteDefault(dir, false)
	require.ErrorIs(t, err, domain.ErrConfigExists)

	_, err = config.WriteDefault(dir, true)
	require.NoError(t, err)
}
