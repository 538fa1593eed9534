package shell

import "sort"

// Kind is the dispatch route for a command line.
type Kind int

const (
	// KindPassthrough lines are handed, untokenized, to an external
	// interpreter.
	KindPassthrough Kind = iota
	// KindExternal lines name a known program that is launched directly with
	// the parsed argument vector.
	KindExternal
	// KindBuiltin lines are handled inside the shell.
	KindBuiltin
)

func (k Kind) String() string {
	switch k {
	case KindBuiltin:
		return "builtin"
	case KindExternal:
		return "external"
	default:
		return "passthrough"
	}
}

var (
	// BuiltinNames are handled internally.
	BuiltinNames = []string{"cd", "history", "exit", "issue", "rmexcept", "exectl"}

	// ExternalNames are known to the shell but run as ordinary programs.
	ExternalNames = []string{"ls", "rm"}

	builtinSet = toSet(BuiltinNames)
	knownSet   = toSet(append(append([]string{}, BuiltinNames...), ExternalNames...))
)

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}

// IsBuiltin reports whether name is handled by the shell.
func IsBuiltin(name string) bool {
	return builtinSet[name]
}

// IsKnown reports whether name is tokenized before dispatch rather than
// passed through.
func IsKnown(name string) bool {
	return knownSet[name]
}

// KnownNames returns the known command set in lexical order.
func KnownNames() []string {
	var out []string
	for k := range knownSet {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Classified is a command line resolved to its dispatch route. Args is set
// for every kind; Line holds the original text that passthrough execution
// receives.
type Classified struct {
	Kind Kind
	Args []string
	Line string
}

// Name returns the command name, or the empty string for an empty line.
func (c Classified) Name() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

// Empty reports whether the line held no tokens.
func (c Classified) Empty() bool {
	return len(c.Args) == 0
}

// Classify tokenizes the line and resolves its route.
func Classify(line string) Classified {
	args := Split(line)
	c := Classified{Args: args, Line: line}

	switch {
	case len(args) == 0:
		c.Kind = KindPassthrough
	case IsBuiltin(args[0]):
		c.Kind = KindBuiltin
	case IsKnown(args[0]):
		c.Kind = KindExternal
	default:
		c.Kind = KindPassthrough
	}
	return c
}

// ClassifyArgs resolves the route of an already tokenized command. The
// passthrough line is rebuilt by joining the tokens with single spaces.
func ClassifyArgs(args []string) Classified {
	return Classify(Join(args))
}
