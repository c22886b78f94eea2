package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	flagPrefix          = "--"
	shorthandPrefix     = "-"
	argumentTerminator  = "--"
	flagValueSeparator  = "="
	locationSeparators  = `/\:`
	excludeExtFlagToken = flagPrefix + excludeExtFlagName
)

// NormalizeArguments rewrites raw process arguments into a form pflag parses
// the way users expect: a boolean flag followed by a literal (--tokens no) and
// the space-separated extension list (--exclude-ext .log .tmp <repository>).
func NormalizeArguments(command *cobra.Command, arguments []string) []string {
	normalizer := newArgumentNormalizer(command)
	return normalizer.expandExtensionLists(normalizer.joinBooleanLiterals(arguments))
}

type argumentNormalizer struct {
	command      *cobra.Command
	booleanFlags map[string]struct{}
}

func newArgumentNormalizer(command *cobra.Command) *argumentNormalizer {
	normalizer := &argumentNormalizer{command: command, booleanFlags: map[string]struct{}{}}
	normalizer.collectBooleanFlags(command)
	return normalizer
}

// collectBooleanFlags records boolean flag names of command and all its subcommands.
func (normalizer *argumentNormalizer) collectBooleanFlags(command *cobra.Command) {
	if command == nil {
		return
	}
	record := func(flag *pflag.Flag) {
		if flag.Value.Type() == booleanFlagTypeName {
			normalizer.booleanFlags[flag.Name] = struct{}{}
		}
	}
	command.PersistentFlags().VisitAll(record)
	command.Flags().VisitAll(record)
	for _, child := range command.Commands() {
		normalizer.collectBooleanFlags(child)
	}
}

// joinBooleanLiterals turns "--flag literal" into "--flag=literal" for boolean
// flags. Values that are not boolean literals stay positional.
func (normalizer *argumentNormalizer) joinBooleanLiterals(arguments []string) []string {
	joined := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		if argument == argumentTerminator {
			return append(joined, arguments[index:]...)
		}
		flagName, isLongFlag := longFlagName(argument)
		_, isBoolean := normalizer.booleanFlags[flagName]
		if isLongFlag && isBoolean && index+1 < len(arguments) {
			literal := arguments[index+1]
			if _, valid := parseBooleanLiteral(literal); valid && literal != "" && !strings.HasPrefix(literal, shorthandPrefix) {
				joined = append(joined, flagPrefix+flagName+flagValueSeparator+literal)
				index++
				continue
			}
		}
		joined = append(joined, argument)
	}
	return joined
}

// expandExtensionLists expands --exclude-ext .log .tmp <repository> into one
// --exclude-ext=value argument per extension. Values are consumed while they
// look like extensions; a value containing a path or scheme separator ends the
// list. When the list would swallow the only positional argument, its last
// value is left in place as the repository.
func (normalizer *argumentNormalizer) expandExtensionLists(arguments []string) []string {
	expanded := make([]string, 0, len(arguments))
	index := 0
	for index < len(arguments) {
		argument := arguments[index]
		if argument == argumentTerminator {
			expanded = append(expanded, arguments[index:]...)
			break
		}
		if flagName, isLongFlag := longFlagName(argument); !isLongFlag || flagName != excludeExtFlagName {
			expanded = append(expanded, argument)
			index++
			continue
		}

		valueEnd := index + 1
		for valueEnd < len(arguments) && isExtensionLike(arguments[valueEnd]) {
			valueEnd++
		}
		values := arguments[index+1 : valueEnd]
		if len(values) == 0 {
			expanded = append(expanded, argument)
			index++
			continue
		}
		if len(values) > 1 && normalizer.countPositionals(expanded) == 0 && normalizer.countPositionals(arguments[valueEnd:]) == 0 {
			values = values[:len(values)-1]
			valueEnd--
		}
		for _, value := range values {
			expanded = append(expanded, excludeExtFlagToken+flagValueSeparator+value)
		}
		index = valueEnd
	}
	return expanded
}

// countPositionals counts the arguments pflag would leave as positional,
// skipping the values of flags that take one.
func (normalizer *argumentNormalizer) countPositionals(arguments []string) int {
	count := 0
	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		switch {
		case argument == argumentTerminator:
			return count + len(arguments) - index - 1
		case strings.HasPrefix(argument, shorthandPrefix) && len(argument) > 1:
			if !strings.Contains(argument, flagValueSeparator) && normalizer.takesValue(argument) {
				index++
			}
		default:
			count++
		}
	}
	return count
}

func (normalizer *argumentNormalizer) takesValue(argument string) bool {
	if normalizer.command == nil {
		return false
	}
	var flag *pflag.Flag
	if flagName, isLongFlag := longFlagName(argument); isLongFlag {
		flag = normalizer.command.Flags().Lookup(flagName)
	} else if len(argument) == 2 {
		flag = normalizer.command.Flags().ShorthandLookup(strings.TrimPrefix(argument, shorthandPrefix))
	}
	return flag != nil && flag.NoOptDefVal == ""
}

// longFlagName returns the normalized name of a "--name" argument without an
// inline value.
func longFlagName(argument string) (string, bool) {
	if !strings.HasPrefix(argument, flagPrefix) || argument == argumentTerminator || strings.Contains(argument, flagValueSeparator) {
		return "", false
	}
	return string(normalizeFlagName(nil, strings.TrimPrefix(argument, flagPrefix))), true
}

func isExtensionLike(argument string) bool {
	if argument == "" || strings.HasPrefix(argument, shorthandPrefix) {
		return false
	}
	return !strings.ContainsAny(argument, locationSeparators)
}
