package errors

import "slices"

// Template defines a registered error code.
type Template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

var registry = map[string]Template{
	// Runtime (R001-R009)
	"R001": {
		Category:   CategoryReactive,
		Message:    "Effect cycle overrun",
		Detail:     "Settling writes took more passes than the runtime allows. The remaining dirty effects were dropped and the tree was left as it stood after the last completed pass.",
		Suggestion: "Look for effects that write a signal they also read, directly or through a memo.",
	},
	"R002": {
		Category:   CategoryTree,
		Message:    "Duplicate list key",
		Detail:     "A keyed list received the same key twice. The list was left unchanged.",
		Suggestion: "Make the key function return a value unique within the list, such as a database ID.",
	},
	"R003": {
		Category:   CategoryTree,
		Message:    "Stale node access",
		Detail:     "An operation targeted a node that has already been destroyed.",
		Suggestion: "Drop handles when their node is removed; effects bound with Tree.Bind are disposed automatically.",
	},
	"R004": {
		Category:   CategoryRender,
		Message:    "Fragment regeneration failed",
		Detail:     "A draw function returned an error or panicked. The node keeps its previous fragment and the previous frame stays on screen.",
		Suggestion: "Check the props of the failing node; draw functions must not panic on unexpected prop types.",
	},
	"R005": {
		Category:   CategoryReactive,
		Message:    "Effect failed",
		Detail:     "An effect returned an error. Other effects in the same flush still ran.",
		Suggestion: "Handle the error inside the effect or fix the input that caused it.",
	},

	// Configuration (R010-R019)
	"R010": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration",
		Detail:     "rvue.yaml or an RVUE_* environment variable holds a value that failed validation.",
		Suggestion: "Run 'rvue config' to print the effective configuration.",
	},
	"R011": {
		Category:   CategoryConfig,
		Message:    "Configuration file unreadable",
		Detail:     "The configuration file exists but could not be read or parsed as YAML.",
		Suggestion: "Check the file's indentation and key names.",
	},

	// Storage (R020-R029)
	"R020": {
		Category:   CategoryStorage,
		Message:    "Snapshot store failed",
		Detail:     "A rendered frame could not be written to the snapshot store.",
		Suggestion: "Check the snapshot directory permissions or the S3 bucket and credentials.",
	},

	// CLI (R030-R039)
	"R030": {
		Category:   CategoryCLI,
		Message:    "Unknown scene",
		Detail:     "The requested demo scene does not exist.",
		Suggestion: "Run 'rvue scenes' to list them.",
	},
}

// Codes returns all registered codes in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// Lookup returns the template for a code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds or replaces a code.
func Register(code string, template Template) {
	registry[code] = template
}
