package tools

import (
	"context"
	"os"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/interfaces-to/interfaces-to/config"
	"github.com/interfaces-to/interfaces-to/errors"
)

type files struct {
	access config.FilesystemAccess
}

// NewFiles returns file tools guarded by the hidden and read-only glob
// patterns of access.
func NewFiles(access config.FilesystemAccess, only []string) (*Set, error) {
	f := &files{access: access}
	return NewSet("Files", []Spec{
		{
			Name:        "read_file",
			Description: "Reads the entire content of a file.",
			Parameters: Object(map[string]*Schema{
				"path": String("The path of the file to read."),
			}, "path"),
			Handler: f.readFile,
		},
		{
			Name:        "write_file",
			Description: "Writes content to a file, replacing it entirely.",
			Parameters: Object(map[string]*Schema{
				"path":    String("The path of the file to write."),
				"content": String("The full content to write to the file."),
			}, "path", "content"),
			Handler: f.writeFile,
		},
	}, Only(only...))
}

func (f *files) readFile(_ context.Context, args Args) (*Result, error) {
	path := args.String("path")

	hidden, err := isPathRestricted(path, f.access.Hidden)
	if err != nil {
		return nil, err
	}
	if hidden {
		return Text("Error: access denied: path '%s' is hidden", path), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Text("Error: failed to read file '%s': %v", path, err), nil
	}
	return Text("%s", string(content)), nil
}

func (f *files) writeFile(_ context.Context, args Args) (*Result, error) {
	path := args.String("path")
	content := args.String("content")

	hidden, err := isPathRestricted(path, f.access.Hidden)
	if err != nil {
		return nil, err
	}
	if hidden {
		return Text("Error: access denied: path '%s' is hidden", path), nil
	}

	readOnly, err := isPathRestricted(path, f.access.ReadOnly)
	if err != nil {
		return nil, err
	}
	if readOnly {
		return Text("Error: access denied: path '%s' is read-only", path), nil
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return Text("Error: failed to write to file '%s': %v", path, err), nil
	}
	return Text("Successfully wrote %d bytes to %s", len(content), path), nil
}

// isPathRestricted checks if a path matches any of the glob patterns.
func isPathRestricted(path string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			return false, errors.Wrapf(err, "invalid glob pattern '%s'", pattern)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

