package utils

const (
	// EmptyString represents a reusable empty string constant.
	EmptyString = ""

	// GitDirectoryName is the name of the version-control metadata directory.
	GitDirectoryName = ".git"

	// ConfigFileName is the local configuration file looked up in the working directory.
	ConfigFileName = ".gitfeed.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding the global configuration.
	GlobalConfigDirectoryName = ".gitfeed"
	// GlobalConfigFileName is the global configuration file inside GlobalConfigDirectoryName.
	GlobalConfigFileName = "config.yaml"

	// DefaultTreeFileName is the default destination of the tree listing.
	DefaultTreeFileName = "directory_structure.txt"
	// DefaultContentsFileName is the default destination of the concatenated contents.
	DefaultContentsFileName = "contents.txt"

	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes fatal execution errors.
	ApplicationExecutionFailedMessage = "[!] gitfeed failed"
	// WorkingDirectoryFailedMessage reports that the current directory could not be resolved.
	WorkingDirectoryFailedMessage = "[!] Could not determine the current working directory"
)
