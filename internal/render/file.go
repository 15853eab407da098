// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package render

import (
	"bytes"
	"regexp"
	"strings"

	"grimm.is/vrouter/internal/errors"
)

// File is an in-memory line editor for daemon configuration grammars.
// Lines are held without their trailing newline.
type File struct {
	name  string
	lines []string
}

// NewFile splits data into lines. name is used in error messages only.
func NewFile(name string, data []byte) *File {
	text := strings.TrimRight(string(data), "\n")
	f := &File{name: name}
	if text != "" {
		f.lines = strings.Split(text, "\n")
	}
	return f
}

// Lines returns a copy of the current lines.
func (f *File) Lines() []string {
	out := make([]string, len(f.lines))
	copy(out, f.lines)
	return out
}

// Search replaces every non-comment line matching pattern with replacement.
// When nothing matches, replacement is appended. It reports whether a line matched.
func (f *File) Search(pattern, replacement string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, errors.Wrapf(err, errors.KindValidation, "%s: bad search pattern %q", f.name, pattern)
	}

	found := false
	for i, line := range f.lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		if re.MatchString(line) {
			f.lines[i] = replacement
			found = true
		}
	}
	if !found {
		f.lines = append(f.lines, replacement)
	}
	return found, nil
}

// GReplace substitutes every occurrence of token with value.
func (f *File) GReplace(token, value string) {
	for i, line := range f.lines {
		f.lines[i] = strings.ReplaceAll(line, token, value)
	}
}

// Section replaces the body between the first line equal to start and the
// next line equal to end. Lines are compared with surrounding blanks trimmed.
func (f *File) Section(start, end string, body []string) error {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)

	from := -1
	for i, line := range f.lines {
		if strings.TrimSpace(line) == start {
			from = i
			break
		}
	}
	if from < 0 {
		return errors.Errorf(errors.KindValidation, "%s: section %q not found", f.name, start)
	}

	to := -1
	for i := from + 1; i < len(f.lines); i++ {
		if strings.TrimSpace(f.lines[i]) == end {
			to = i
			break
		}
	}
	if to < 0 {
		return errors.Errorf(errors.KindValidation, "%s: section %q is not closed by %q", f.name, start, end)
	}

	replaced := make([]string, 0, len(f.lines)-(to-from-1)+len(body))
	replaced = append(replaced, f.lines[:from+1]...)
	for _, l := range body {
		replaced = append(replaced, strings.TrimRight(l, "\n"))
	}
	replaced = append(replaced, f.lines[to:]...)
	f.lines = replaced
	return nil
}

// Add inserts line at position unless an identical line is present.
// A negative or out-of-range position appends.
func (f *File) Add(line string, position int) bool {
	for _, l := range f.lines {
		if l == line {
			return false
		}
	}
	if position < 0 || position >= len(f.lines) {
		f.lines = append(f.lines, line)
		return true
	}
	f.lines = append(f.lines[:position], append([]string{line}, f.lines[position:]...)...)
	return true
}

// Bytes returns the newline-terminated content.
func (f *File) Bytes() []byte {
	var buf bytes.Buffer
	for _, l := range f.lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
