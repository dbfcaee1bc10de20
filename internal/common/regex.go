package common

import "regexp"

// CompileContentPattern compiles a user-authored content pattern with
// case-insensitive matching. Returns an error if the pattern is invalid;
// callers skip bad patterns rather than failing the file.
func CompileContentPattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// CompileFieldPattern compiles a user-authored extraction pattern with
// case-insensitive, multiline matching.
func CompileFieldPattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?im)" + pattern)
}

// ValidPattern reports whether a user-authored pattern compiles. Used to
// validate learned patterns before they are persisted.
func ValidPattern(pattern string) bool {
	_, err := regexp.Compile(pattern)
	return err == nil
}
