package generator

import (
	"fmt"
	"regexp"
	"strings"
)

// Workspace is the path inside the sandbox where the output directory is
// mounted. The prompt instructs generated scripts to write there.
const Workspace = "/workspace"

var (
	fenceRe        = regexp.MustCompile("(?m)^```[a-zA-Z0-9]*[ \t]*$")
	requirementsRe = regexp.MustCompile(`(?m)^#\s*REQUIREMENTS:\s*(.+)$`)
)

// BuildPrompt assembles the code-generation prompt for a task description.
func BuildPrompt(taskDescription string) string {
	return fmt.Sprintf(`Create Python code to: %s
Requirements:
1. Use Python 3.12 syntax
2. Include error handling with try/except
3. Add type hints for functions
4. Save outputs to %s
5. Declare third-party packages on a single line: # REQUIREMENTS: pkg1, pkg2
6. Return ONLY code block without markdown`, taskDescription, Workspace)
}

// Sanitize strips markdown code fences from a model completion and rejects
// responses that contain no usable code.
func Sanitize(raw string) (string, error) {
	code := fenceRe.ReplaceAllString(raw, "")
	code = strings.TrimSpace(code)

	if code == "" {
		return "", fmt.Errorf("completion contained no code")
	}
	if !looksLikePython(code) {
		return "", fmt.Errorf("completion does not look like a Python script")
	}

	return code + "\n", nil
}

// Requirements extracts the packages declared on "# REQUIREMENTS:" lines.
// Duplicates are dropped, order of first appearance is kept.
func Requirements(code string) []string {
	var pkgs []string
	seen := make(map[string]struct{})

	for _, match := range requirementsRe.FindAllStringSubmatch(code, -1) {
		for _, pkg := range strings.Split(match[1], ",") {
			pkg = strings.TrimSpace(pkg)
			if pkg == "" {
				continue
			}
			if _, ok := seen[pkg]; ok {
				continue
			}
			seen[pkg] = struct{}{}
			pkgs = append(pkgs, pkg)
		}
	}

	return pkgs
}

// looksLikePython is a cheap plausibility check. Full syntax validation
// happens in the sandbox, where the interpreter is the authority; this only
// filters out prose responses that slipped past the prompt.
func looksLikePython(code string) bool {
	markers := []string{
		"import ", "from ", "def ", "class ", "print(", "if ", "for ", "while ", "=",
	}
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		for _, marker := range markers {
			if strings.Contains(trimmed, marker) {
				return true
			}
		}
	}
	return false
}
