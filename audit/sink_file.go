package audit

import (
	"context"
	"encoding/json"
	"os"
	"sync"
)

// FileSink appends audit entries as JSONL.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

var _ Sink = (*FileSink)(nil)

func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &FileSink{file: f}, nil
}

func (s *FileSink) Write(ctx context.Context, entry Entry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.file.Write(append(b, '\n'))
	return err
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
