package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openclaw/skillforge/internal/skill"
)

// MockName is the registry name of the mock provider.
const MockName = "mock"

func init() {
	Register(MockName, func() Provider { return &Mock{} })
}

// Trigger keywords for each canned skill.
var (
	textEchoTriggers = map[string]bool{
		"echo": true, "text": true, "uppercase": true,
		"convert": true, "lowercase": true, "case": true,
	}
	filenameTriggers = map[string]bool{
		"filename": true, "normalize": true, "sanitize": true, "safe": true,
	}
)

const textEchoCode = `# Text echo skill: transforms text between formats.

def action(text, format = "upper"):
    if format == "upper":
        return text.upper()
    if format == "lower":
        return text.lower()
    if format == "title":
        return text.title()
    return text

def verify():
    if action("hello", "upper") != "HELLO":
        return False
    if action("HELLO", "lower") != "hello":
        return False
    if action("hello world", "title") != "Hello World":
        return False
    if action("test") != "TEST":
        return False
    return True
`

const filenameCode = `# Safe filename normalizer: strips traversal sequences and
# unsafe characters from a filename.

_SAFE_CHARS = "abcdefghijklmnopqrstuvwxyz0123456789._-"

def action(filename):
    for _ in range(len(filename)):
        if ".." not in filename:
            break
        filename = filename.replace("..", "")
    filename = filename.replace("/", "")
    filename = filename.replace("\\", "")
    filename = filename.replace(" ", "_")
    filename = filename.lower()
    out = ""
    for ch in filename.elems():
        if ch in _SAFE_CHARS:
            out += ch
    out = out.strip("._")
    if len(out) > 255:
        out = out[:255]
    if not out:
        out = "unnamed"
    return out

def verify():
    if action("Hello World.txt") != "hello_world.txt":
        return False
    traversal = "." + "." + "/"
    if action(traversal + traversal + "foo") != "foo":
        return False
    if action("file<>:name?.txt") != "filename.txt":
        return False
    if action("...") != "unnamed":
        return False
    if len(action("a" * 300 + ".txt")) > 255:
        return False
    return True
`

func textEchoManifest() *skill.Manifest {
	return &skill.Manifest{
		Name:        "text_echo",
		Version:     "1.0.0",
		Description: "Transforms text to different formats including uppercase, lowercase, and title case.",
		Author:      "auto-generated",
		InputsSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text":   map[string]any{"type": "string"},
				"format": map[string]any{"type": "string", "enum": []any{"upper", "lower", "title"}},
			},
			"required": []any{"text"},
		},
		OutputsSchema: map[string]any{"type": "string"},
		Permissions:   skill.Permissions{Filesystem: skill.FilesystemNone},
		Dependencies:  []skill.Dependency{},
	}
}

func filenameManifest() *skill.Manifest {
	return &skill.Manifest{
		Name:        "safe_filename_normalize",
		Version:     "1.0.0",
		Description: "Normalizes filenames to be safe for filesystem use by removing dangerous characters and patterns.",
		Author:      "auto-generated",
		InputsSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"filename": map[string]any{"type": "string"},
			},
			"required": []any{"filename"},
		},
		OutputsSchema: map[string]any{"type": "string"},
		Permissions:   skill.Permissions{Filesystem: skill.FilesystemNone},
		Dependencies:  []skill.Dependency{},
	}
}

// Mock returns canned skill packages keyed on trigger words in the
// capability description. Everything it emits passes the policy scan.
type Mock struct{}

// Name implements Provider.
func (m *Mock) Name() string { return MockName }

// GenerateSkill implements Provider. Unknown capabilities are an error:
// the mock never invents a package.
func (m *Mock) GenerateSkill(capability, context string) (*skill.Package, error) {
	words := strings.Fields(strings.ToLower(capability))

	for _, w := range words {
		if textEchoTriggers[w] {
			return &skill.Package{
				Name:     "text_echo",
				Code:     textEchoCode,
				Manifest: textEchoManifest(),
			}, nil
		}
	}
	for _, w := range words {
		if filenameTriggers[w] {
			return &skill.Package{
				Name:     "safe_filename_normalize",
				Code:     filenameCode,
				Manifest: filenameManifest(),
			}, nil
		}
	}

	return nil, fmt.Errorf("mock provider has no skill for capability %q (triggers: %s)",
		capability, strings.Join(allTriggers(), ", "))
}

func allTriggers() []string {
	var out []string
	for w := range textEchoTriggers {
		out = append(out, w)
	}
	for w := range filenameTriggers {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
