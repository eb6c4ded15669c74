package scanner

import "regexp"

// Allowed top-level modules for load() statements: general-purpose
// data/text/time/math/encoding utilities only.
var allowedModules = map[string]bool{
	// Data processing
	"json": true, "csv": true, "xml": true,
	// String and regex
	"re": true, "string": true, "textwrap": true,
	// Path (safe usage)
	"pathlib": true,
	// Time
	"datetime": true, "time": true, "calendar": true,
	// Types
	"typing": true, "types": true, "dataclasses": true, "enum": true,
	// Collections and iteration
	"collections": true, "itertools": true, "functools": true,
	// Math
	"math": true, "decimal": true, "fractions": true, "statistics": true, "random": true,
	// Encoding
	"hashlib": true, "base64": true, "binascii": true,
	// URL parsing (not fetching)
	"urllib": true,
	// Utilities
	"copy": true, "pprint": true, "operator": true,
	// Context
	"contextlib": true,
	// ABC
	"abc": true,
}

// Denylisted call targets: dynamic execution, filesystem and interactive
// input, reflection, namespace introspection, debugging.
var forbiddenCalls = map[string]bool{
	"__import__": true, "eval": true, "exec": true, "compile": true,
	"open": true, "input": true,
	"getattr": true, "setattr": true, "delattr": true,
	"globals": true, "locals": true, "vars": true,
	"breakpoint": true,
}

// Denylisted attribute names: runtime introspection surfaces usable to
// escape the allowlist.
var forbiddenAttributes = map[string]bool{
	"__subclasses__": true, "__bases__": true, "__mro__": true,
	"__globals__": true, "__code__": true, "__closure__": true,
	"__builtins__": true, "__import__": true,
	"__loader__": true, "__spec__": true,
}

// Suspicious literal sequences scanned on the raw source text.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.\./`),   // path traversal (unix)
	regexp.MustCompile(`\.\.\\`),  // path traversal (windows)
	regexp.MustCompile(`/etc/`),   // system config
	regexp.MustCompile(`/proc/`),  // proc filesystem
	regexp.MustCompile(`/sys/`),   // sys filesystem
	regexp.MustCompile(`~/`),      // home directory expansion
}
