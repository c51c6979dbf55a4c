package ports

import "go.trai.ch/basis/internal/core/domain"

// ConfigLoader defines the interface for loading the project configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration found from the given working directory and returns the
	// validated project.
	Load(cwd string) (*domain.Project, error)

	// DiscoverRoot walks up from cwd to find the directory containing basis.yaml.
	DiscoverRoot(cwd string) (string, error)
}
