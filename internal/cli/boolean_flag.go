package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const (
	booleanFlagTypeName    = "bool"
	booleanFlagTrueLiteral = "true"
	booleanLiteralsListing = "true, false, yes, no, on, off, 1, 0"
	invalidBooleanFormat   = "invalid boolean value %q for --%s; accepted values: %s"
)

var booleanLiterals = map[string]bool{
	"true": true, "t": true, "1": true, "yes": true, "y": true, "on": true,
	"false": false, "f": false, "0": false, "no": false, "n": false, "off": false,
}

// parseBooleanLiteral reports the value of a yes/no style literal. An empty
// literal means true, matching a bare --flag.
func parseBooleanLiteral(input string) (value bool, ok bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return true, true
	}
	value, ok = booleanLiterals[normalized]
	return value, ok
}

// booleanFlagValue is a pflag value that accepts every literal in booleanLiterals.
type booleanFlagValue struct {
	target *bool
	name   string
}

func (value *booleanFlagValue) Set(input string) error {
	parsed, ok := parseBooleanLiteral(input)
	if !ok {
		return fmt.Errorf(invalidBooleanFormat, input, value.name, booleanLiteralsListing)
	}
	*value.target = parsed
	return nil
}

func (value *booleanFlagValue) String() string {
	if value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *booleanFlagValue) Type() string {
	return booleanFlagTypeName
}

// registerBooleanFlag defines a flag usable as --name, --name=no or --name no.
// The last form relies on NormalizeArguments joining the literal to the flag.
func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	*target = defaultValue
	flagSet.Var(&booleanFlagValue{target: target, name: name}, name, usage)
	flag := flagSet.Lookup(name)
	flag.DefValue = strconv.FormatBool(defaultValue)
	flag.NoOptDefVal = booleanFlagTrueLiteral
}
