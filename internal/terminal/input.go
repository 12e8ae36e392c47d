package terminal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chatbot-client/internal/backend"
)

// MaxAttachmentSize caps a single uploaded file
const MaxAttachmentSize = 20 << 20

// Input reads user lines from a terminal or pipe
type Input struct {
	reader *bufio.Reader
}

// NewInput wraps r for line reading
func NewInput(r io.Reader) *Input {
	return &Input{reader: bufio.NewReader(r)}
}

// ReadUserInput reads a line of input from the user
func (in *Input) ReadUserInput() (string, error) {
	input, err := in.reader.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}

	// Trim whitespace and newline
	return strings.TrimSpace(input), nil
}

// SplitAttachmentRefs separates @file references from the rest of a line
func SplitAttachmentRefs(line string) (refs []string, rest string) {
	var words []string
	for _, word := range strings.Fields(line) {
		if strings.HasPrefix(word, "@") && len(word) > 1 {
			refs = append(refs, strings.Trim(strings.TrimPrefix(word, "@"), "\"'"))
			continue
		}
		words = append(words, word)
	}
	return refs, strings.Join(words, " ")
}

// ResolveAttachments reads the files named by refs. A ref is either a path
// relative to workingDir or a fragment matching exactly one file below it.
func ResolveAttachments(workingDir string, refs []string) ([]backend.Attachment, error) {
	attachments := make([]backend.Attachment, 0, len(refs))
	for _, ref := range refs {
		path, err := resolveRef(workingDir, ref)
		if err != nil {
			return nil, err
		}

		content, err := readLimited(path, MaxAttachmentSize)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, backend.Attachment{
			Name:    filepath.Base(path),
			Content: content,
		})
	}
	return attachments, nil
}

func resolveRef(workingDir, ref string) (string, error) {
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(workingDir, ref)
	}
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path, nil
	}

	matches := FindMatchingFiles(workingDir, ref)
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no file matches @%s", ref)
	case 1:
		return filepath.Join(workingDir, matches[0]), nil
	default:
		return "", &AmbiguousRefError{Ref: ref, Matches: matches}
	}
}

// AmbiguousRefError is returned when an @ reference matches several files
type AmbiguousRefError struct {
	Ref     string
	Matches []string
}

func (e *AmbiguousRefError) Error() string {
	return fmt.Sprintf("@%s matches %d files", e.Ref, len(e.Matches))
}

func readLimited(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%s is larger than %d bytes", path, maxBytes)
	}
	return data, nil
}

// FindMatchingFiles searches for files matching the partial path after @
func FindMatchingFiles(workingDir string, partial string) []string {
	matches := []string{}

	// Determine search directory and pattern
	searchDir := workingDir
	pattern := strings.ToLower(partial)

	if strings.Contains(partial, "/") {
		dir, file := filepath.Split(partial)
		searchDir = filepath.Join(workingDir, dir)
		pattern = strings.ToLower(file)
	}

	// Walk the search directory (limit depth to avoid slow searches)
	_ = filepath.Walk(searchDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		relPath, err := filepath.Rel(workingDir, path)
		if err != nil || relPath == "." {
			return nil
		}

		// Skip hidden files and directories
		if strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.IsDir() {
			isMatch := partial == "" ||
				strings.Contains(strings.ToLower(relPath), pattern) ||
				strings.Contains(strings.ToLower(info.Name()), pattern)

			if isMatch && len(matches) < 100 {
				matches = append(matches, relPath)
			}
		}

		depth := strings.Count(relPath, string(filepath.Separator))
		if info.IsDir() && depth > 4 {
			return filepath.SkipDir
		}

		return nil
	})

	return matches
}

// ShowFileSuggestions lists candidate files for an ambiguous @ reference
func ShowFileSuggestions(out io.Writer, ref string, matches []string) {
	fmt.Fprintf(out, "\n💡 File suggestions for '@%s':\n", ref)
	for i, match := range matches {
		if i == 10 { // Show max 10 suggestions
			break
		}
		fmt.Fprintf(out, "   @%s\n", match)
	}
	fmt.Fprintln(out)
}
