package queue

import (
	"encoding/json"
	"fmt"
	"os"

	"voidbot/internal/notification"
)

// Entry is one queue file on disk together with the metadata encoded in its
// name.
type Entry struct {
	Bucket Bucket
	Name   string
	Path   string
	Info   notification.FileNameInfo
}

// Load decodes the entry's payload into a notification item.
func (e Entry) Load() (*notification.Item, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, fmt.Errorf("read queue file %s: %w", e.Name, err)
	}
	var item notification.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("decode queue file %s: %w", e.Name, err)
	}
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("queue file %s: %w", e.Name, err)
	}
	return &item, nil
}
