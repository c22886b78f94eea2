// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/gitfeed/internal/config"
	"github.com/temirov/gitfeed/internal/repository"
	"github.com/temirov/gitfeed/internal/services/feed"
	"github.com/temirov/gitfeed/internal/tokenizer"
	"github.com/temirov/gitfeed/internal/types"
	"github.com/temirov/gitfeed/internal/utils"
)

const (
	treeFileFlagName       = "dir-structure-file"
	contentsFileFlagName   = "output-name"
	excludeExtFlagName     = "exclude-ext"
	maxFileSizeFlagName    = "max-file-size"
	outputRootFlagName     = "output-root"
	depthFlagName          = "depth"
	skipUnreadableFlagName = "skip-unreadable"
	tokensFlagName         = "tokens"
	modelFlagName          = "model"
	configFlagName         = "config"
	verboseFlagName        = "verbose"
	versionFlagName        = "version"
	globalFlagName         = "global"
	forceFlagName          = "force"

	versionTemplate      = "gitfeed version: %s\n"
	rootUse              = "gitfeed <repository>"
	rootShortDescription = "clone a repository and feed its tree and contents into two text files"
	rootLongDescription  = `gitfeed clones a repository into a temporary directory and writes two files
into <output-root>/<repository-name>/: an indented directory structure and the
concatenated text of every file. Use --exclude-ext and --max-file-size to leave
files out of the contents.`
	rootUsageExample = `  # Feed a GitHub repository
  gitfeed https://github.com/user/repo.git

  # Leave out logs and temporary files, and anything over half a megabyte
  gitfeed --exclude-ext .log .tmp --max-file-size 0.5 https://github.com/user/repo.git`

	configUse               = "config"
	configShortDescription  = "manage gitfeed configuration"
	configInitUse           = "init"
	configInitShortDesc     = "write the default configuration file"
	configInitCreatedFormat = "Configuration written to %s\n"

	treeFileFlagDescription       = "file name for the directory structure"
	contentsFileFlagDescription   = "file name for the concatenated file contents"
	excludeExtFlagDescription     = "file extensions to exclude (repeatable, comma or space separated)"
	maxFileSizeFlagDescription    = "maximum file size in MB to include in the contents"
	outputRootFlagDescription     = "directory that receives the <repository-name> output directory (default: current directory)"
	depthFlagDescription          = "shallow clone depth, 0 clones the full history"
	skipUnreadableFlagDescription = "render unreadable directories without children instead of failing"
	tokensFlagDescription         = "count tokens of the concatenated contents"
	modelFlagDescription          = "tokenizer model to use for token counting"
	configFlagDescription         = "configuration file to use instead of " + utils.ConfigFileName
	verboseFlagDescription        = "enable debug logging"
	versionFlagDescription        = "display application version"
	globalFlagDescription         = "write the configuration under the home directory"
	forceFlagDescription          = "overwrite an existing configuration file"

	missingRepositoryMessage  = "requires a repository argument"
	negativeMaxFileSizeFormat = "--%s must not be negative, got %v"
	negativeDepthFormat       = "--%s must not be negative, got %d"
	loadConfigurationFormat   = "load configuration: %w"
	initializeTokenizerFormat = "initialize tokenizer: %w"
)

// ClonerFactory builds the cloner for one run.
type ClonerFactory func(gitBinary string, depth int, logger *zap.Logger) repository.Cloner

// Dependencies carries the collaborators the commands run with. Zero values
// fall back to the production implementations.
type Dependencies struct {
	Logger *zap.Logger
	// LogLevel is lowered to debug when --verbose is given.
	LogLevel         *zap.AtomicLevel
	NewCloner        ClonerFactory
	WorkingDirectory string
}

// runOptions stores the flag values of the root command.
type runOptions struct {
	treeFileName      string
	contentsFileName  string
	excludeExtensions []string
	maxFileSizeMB     float64
	outputRoot        string
	depth             int
	skipUnreadable    bool
	tokensEnabled     bool
	model             string
	configPath        string
	verbose           bool
	showVersion       bool
}

// Execute runs the gitfeed application with the process arguments.
func Execute(ctx context.Context, dependencies Dependencies) error {
	rootCommand := NewRootCommand(dependencies)
	rootCommand.SetArgs(NormalizeArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// NewRootCommand builds the root Cobra command.
func NewRootCommand(dependencies Dependencies) *cobra.Command {
	var options runOptions

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       rootUsageExample,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if options.showVersion {
				_, err := fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return err
			}
			if len(arguments) == 0 {
				_ = command.Usage()
				return errors.New(missingRepositoryMessage)
			}
			if options.verbose && dependencies.LogLevel != nil {
				dependencies.LogLevel.SetLevel(zap.DebugLevel)
			}
			return runFeed(command, dependencies, options, arguments[0])
		},
	}
	rootCommand.SetGlobalNormalizationFunc(normalizeFlagName)

	flagSet := rootCommand.Flags()
	flagSet.StringVar(&options.treeFileName, treeFileFlagName, utils.DefaultTreeFileName, treeFileFlagDescription)
	flagSet.StringVar(&options.contentsFileName, contentsFileFlagName, utils.DefaultContentsFileName, contentsFileFlagDescription)
	flagSet.StringSliceVar(&options.excludeExtensions, excludeExtFlagName, nil, excludeExtFlagDescription)
	flagSet.Float64Var(&options.maxFileSizeMB, maxFileSizeFlagName, 0, maxFileSizeFlagDescription)
	flagSet.StringVar(&options.outputRoot, outputRootFlagName, "", outputRootFlagDescription)
	flagSet.IntVar(&options.depth, depthFlagName, 0, depthFlagDescription)
	registerBooleanFlag(flagSet, &options.skipUnreadable, skipUnreadableFlagName, false, skipUnreadableFlagDescription)
	registerBooleanFlag(flagSet, &options.tokensEnabled, tokensFlagName, false, tokensFlagDescription)
	flagSet.StringVar(&options.model, modelFlagName, tokenizer.DefaultModel, modelFlagDescription)
	flagSet.StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	registerBooleanFlag(flagSet, &options.verbose, verboseFlagName, false, verboseFlagDescription)
	rootCommand.PersistentFlags().BoolVar(&options.showVersion, versionFlagName, false, versionFlagDescription)

	rootCommand.AddCommand(createConfigCommand(dependencies))
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// normalizeFlagName accepts underscore spellings such as --output_name.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func createConfigCommand(dependencies Dependencies) *cobra.Command {
	var global bool
	var force bool

	configCommand := &cobra.Command{
		Use:   configUse,
		Short: configShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	initCommand := &cobra.Command{
		Use:   configInitUse,
		Short: configInitShortDesc,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, err := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: dependencies.WorkingDirectory,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(command.OutOrStdout(), configInitCreatedFormat, path)
			return err
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	configCommand.AddCommand(initCommand)
	return configCommand
}

// runFeed resolves flag, configuration and default values and runs the feed service.
func runFeed(command *cobra.Command, dependencies Dependencies, options runOptions, repositoryLocation string) error {
	logger := utils.LoggerOrNop(dependencies.Logger)
	flagSet := command.Flags()

	configuration, err := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: dependencies.WorkingDirectory,
		ExplicitFilePath: options.configPath,
	})
	if err != nil {
		return fmt.Errorf(loadConfigurationFormat, err)
	}

	treeFileName := stringSetting(flagSet, treeFileFlagName, options.treeFileName, configuration.TreeFile)
	contentsFileName := stringSetting(flagSet, contentsFileFlagName, options.contentsFileName, configuration.ContentsFile)
	outputRoot := stringSetting(flagSet, outputRootFlagName, options.outputRoot, configuration.OutputRoot)
	if outputRoot == "" {
		outputRoot = dependencies.WorkingDirectory
	}
	gitBinary := configuration.Clone.GitBinary

	excludeExtensions := configuration.ExcludeExtensions
	if flagSet.Changed(excludeExtFlagName) {
		excludeExtensions = options.excludeExtensions
	}

	var maxFileSizeMB *float64
	if flagSet.Changed(maxFileSizeFlagName) {
		if options.maxFileSizeMB < 0 {
			return fmt.Errorf(negativeMaxFileSizeFormat, maxFileSizeFlagName, options.maxFileSizeMB)
		}
		maxFileSizeMB = &options.maxFileSizeMB
	} else {
		maxFileSizeMB = configuration.MaxFileSizeMB
	}

	depth := options.depth
	if !flagSet.Changed(depthFlagName) && configuration.Clone.Depth != nil {
		depth = *configuration.Clone.Depth
	}
	if depth < 0 {
		return fmt.Errorf(negativeDepthFormat, depthFlagName, depth)
	}

	skipUnreadable := boolSetting(flagSet, skipUnreadableFlagName, options.skipUnreadable, configuration.Tree.SkipUnreadable)
	tokensEnabled := boolSetting(flagSet, tokensFlagName, options.tokensEnabled, configuration.Tokens.Enabled)
	model := stringSetting(flagSet, modelFlagName, options.model, configuration.Tokens.Model)

	feedOptions := feed.Options{
		RepositoryLocation: repositoryLocation,
		OutputRoot:         outputRoot,
		TreeFileName:       treeFileName,
		ContentsFileName:   contentsFileName,
		Policy:             types.NewExclusionPolicy(excludeExtensions, maxFileSizeMB),
		SkipUnreadable:     skipUnreadable,
		SkipNames:          configuration.Tree.SkipNames,
	}
	if tokensEnabled {
		counter, resolvedModel, counterErr := tokenizer.NewCounter(tokenizer.Config{Model: model})
		if counterErr != nil {
			return fmt.Errorf(initializeTokenizerFormat, counterErr)
		}
		feedOptions.TokenCounter = counter
		feedOptions.TokenModel = resolvedModel
	}

	newCloner := dependencies.NewCloner
	if newCloner == nil {
		newCloner = newGitCloner
	}
	runFields := []zap.Field{
		zap.String("repository", repositoryLocation),
		zap.String("outputRoot", outputRoot),
		zap.Strings("excludeExtensions", types.NormalizeExtensions(excludeExtensions)),
		zap.Int("depth", depth),
	}
	if maxFileSizeMB != nil {
		runFields = append(runFields, zap.String("maxFileSize", utils.FormatMegabytes(*maxFileSizeMB)))
	}
	logger.Debug("Resolved run options", runFields...)

	service := feed.NewService(newCloner(gitBinary, depth, logger), logger)
	_, err = service.Run(command.Context(), feedOptions)
	return err
}

func newGitCloner(gitBinary string, depth int, logger *zap.Logger) repository.Cloner {
	return &repository.GitCloner{Binary: gitBinary, Depth: depth, Logger: logger}
}

// stringSetting prefers an explicitly set flag, then a configured value, then the flag default.
func stringSetting(flagSet *pflag.FlagSet, name string, flagValue string, configuredValue string) string {
	if flagSet.Changed(name) || configuredValue == "" {
		return flagValue
	}
	return configuredValue
}

func boolSetting(flagSet *pflag.FlagSet, name string, flagValue bool, configuredValue *bool) bool {
	if flagSet.Changed(name) || configuredValue == nil {
		return flagValue
	}
	return *configuredValue
}

// ExitCode maps an execution error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cloneError *repository.CloneError
	if errors.As(err, &cloneError) {
		return 2
	}
	return 1
}
