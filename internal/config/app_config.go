// Package config loads gitfeed defaults from global and local YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/gitfeed/internal/types"
	"github.com/temirov/gitfeed/internal/utils"
)

const configurationType = "yaml"

var (
	// ErrNegativeMaxFileSize rejects a negative max_file_size_mb.
	ErrNegativeMaxFileSize = errors.New("max_file_size_mb must not be negative")
	// ErrNegativeDepth rejects a negative clone.depth.
	ErrNegativeDepth = errors.New("clone.depth must not be negative")
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds defaults for a gitfeed run. Unset values are
// zero or nil so that merging can tell them apart from explicit settings.
type ApplicationConfiguration struct {
	TreeFile          string             `mapstructure:"tree_file"`
	ContentsFile      string             `mapstructure:"contents_file"`
	OutputRoot        string             `mapstructure:"output_root"`
	ExcludeExtensions []string           `mapstructure:"exclude_extensions"`
	MaxFileSizeMB     *float64           `mapstructure:"max_file_size_mb"`
	Tree              TreeConfiguration  `mapstructure:"tree"`
	Clone             CloneConfiguration `mapstructure:"clone"`
	Tokens            TokenConfiguration `mapstructure:"tokens"`
}

// TreeConfiguration controls the directory listing.
type TreeConfiguration struct {
	SkipUnreadable *bool    `mapstructure:"skip_unreadable"`
	SkipNames      []string `mapstructure:"skip_names"`
}

// CloneConfiguration controls how repositories are fetched.
type CloneConfiguration struct {
	GitBinary string `mapstructure:"git_binary"`
	Depth     *int   `mapstructure:"depth"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if globalPath, err := globalConfigurationPath(); err == nil {
		globalConfig, loadErr := loadConfigurationFromPath(globalPath, false)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	localConfig, loadErr := loadConfigurationFromPath(localPath, options.ExplicitFilePath != "")
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	merged.ExcludeExtensions = types.NormalizeExtensions(merged.ExcludeExtensions)
	merged.Tree.SkipNames = utils.DeduplicatePatterns(merged.Tree.SkipNames)

	if validationErr := merged.Validate(); validationErr != nil {
		return ApplicationConfiguration{}, validationErr
	}
	return merged, nil
}

// Validate rejects values no run could honor.
func (config ApplicationConfiguration) Validate() error {
	if config.MaxFileSizeMB != nil && *config.MaxFileSizeMB < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeMaxFileSize, *config.MaxFileSizeMB)
	}
	if config.Clone.Depth != nil && *config.Clone.Depth < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeDepth, *config.Clone.Depth)
	}
	return nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), nil
}

// loadConfigurationFromPath reads one YAML file. A missing file yields an empty
// configuration unless required is set.
func loadConfigurationFromPath(path string, required bool) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) && !required {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigType(configurationType)
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.TreeFile != "" {
		result.TreeFile = override.TreeFile
	}
	if override.ContentsFile != "" {
		result.ContentsFile = override.ContentsFile
	}
	if override.OutputRoot != "" {
		result.OutputRoot = override.OutputRoot
	}
	if len(override.ExcludeExtensions) > 0 {
		result.ExcludeExtensions = append([]string{}, override.ExcludeExtensions...)
	}
	if override.MaxFileSizeMB != nil {
		result.MaxFileSizeMB = cloneFloat(override.MaxFileSizeMB)
	}
	result.Tree = result.Tree.merge(override.Tree)
	result.Clone = result.Clone.merge(override.Clone)
	result.Tokens = result.Tokens.merge(override.Tokens)
	return result
}

func (config TreeConfiguration) merge(override TreeConfiguration) TreeConfiguration {
	result := config
	if override.SkipUnreadable != nil {
		result.SkipUnreadable = cloneBool(override.SkipUnreadable)
	}
	if len(override.SkipNames) > 0 {
		result.SkipNames = append([]string{}, utils.DeduplicatePatterns(override.SkipNames)...)
	}
	return result
}

func (config CloneConfiguration) merge(override CloneConfiguration) CloneConfiguration {
	result := config
	if override.GitBinary != "" {
		result.GitBinary = override.GitBinary
	}
	if override.Depth != nil {
		result.Depth = cloneInt(override.Depth)
	}
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	if override.Enabled != nil {
		result.Enabled = cloneBool(override.Enabled)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
