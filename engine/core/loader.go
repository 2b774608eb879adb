package core

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// MapFromBytes parses a YAML (or JSON) document into a plain Node.
// An empty document yields an empty Node.
func MapFromBytes(data []byte) (Node, error) {
	var itemMap map[string]any
	if err := yaml.Unmarshal(data, &itemMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	node, _ := Plain(itemMap).(Node)
	if node == nil {
		node = Node{}
	}
	return node, nil
}

// MapFromFilePath reads path from fs and parses it with MapFromBytes.
func MapFromFilePath(fs afero.Fs, path string) (Node, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, NewError(fmt.Errorf("failed to read file: %w", err), ErrCodeFileLoadFailed, map[string]any{
			"file": path,
		})
	}
	node, err := MapFromBytes(data)
	if err != nil {
		return nil, NewError(err, ErrCodeFileLoadFailed, map[string]any{"file": path})
	}
	return node, nil
}
