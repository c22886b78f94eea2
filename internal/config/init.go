package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/temirov/gitfeed/internal/utils"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes .gitfeed.yaml into the working directory.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes config.yaml under ~/.gitfeed.
	InitTargetGlobal InitTarget = "global"

	configurationDirectoryMode = 0o755
	configurationFileMode      = 0o600

	configurationExistsFormat = "configuration file already exists at %s (use --force to overwrite)"
	unknownInitTargetFormat   = "unsupported init target %q"

	defaultConfigurationTemplate = `# gitfeed configuration
# Command-line flags override these values.
tree_file: directory_structure.txt
contents_file: contents.txt
# output_root: /path/to/outputs
exclude_extensions: []
# max_file_size_mb: 1.5
tree:
  skip_unreadable: false
  skip_names: []
clone:
  git_binary: git
  depth: 0
tokens:
  enabled: false
  model: gpt-4o
`
)

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
}

// InitializeConfiguration writes the default configuration template and
// returns the path it was written to. An existing file is kept unless Force is set.
func InitializeConfiguration(options InitOptions) (string, error) {
	destination, err := initDestination(options)
	if err != nil {
		return "", err
	}

	_, statErr := os.Stat(destination)
	switch {
	case statErr == nil && !options.Force:
		return "", fmt.Errorf(configurationExistsFormat, destination)
	case statErr != nil && !errors.Is(statErr, fs.ErrNotExist):
		return "", fmt.Errorf("inspect configuration path %s: %w", destination, statErr)
	}

	if err := os.MkdirAll(filepath.Dir(destination), configurationDirectoryMode); err != nil {
		return "", fmt.Errorf("create configuration directory for %s: %w", destination, err)
	}
	if err := os.WriteFile(destination, []byte(defaultConfigurationTemplate), configurationFileMode); err != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destination, err)
	}
	return destination, nil
}

func initDestination(options InitOptions) (string, error) {
	switch options.Target {
	case InitTargetLocal, "":
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			current, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("determine working directory for configuration: %w", err)
			}
			workingDirectory = current
		}
		return filepath.Join(workingDirectory, utils.ConfigFileName), nil
	case InitTargetGlobal:
		return globalConfigurationPath()
	default:
		return "", fmt.Errorf(unknownInitTargetFormat, options.Target)
	}
}

// globalConfigurationPath returns ~/.gitfeed/config.yaml.
func globalConfigurationPath() (string, error) {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for configuration: %w", err)
	}
	if homeDirectory == "" {
		return "", errors.New("home directory is empty")
	}
	return filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName), nil
}
