package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore は単一のJSONファイルに全キーを保存するStore実装。
// 操作のたびにファイル全体を読み直すため、外部プロセスによる書き込みも
// 次の操作で反映される。書き込みは一時ファイル経由のリネームで
// アトミックに行い、途中失敗で壊れたファイルを残さない。
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore は指定パスにデータを保存するFileStoreを生成する。
// 親ディレクトリが存在しない場合は作成する。
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Get は指定キーの値を返す。キーが存在しない場合はnilを返す。
func (s *FileStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}

	v, ok := data[key]
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

// Set は指定キーに値を保存する。
func (s *FileStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}

	data[key] = string(value)
	return s.save(data)
}

// Delete は指定キーの値を削除する。
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return s.save(data)
}

// load はファイルから全キーを読み込む。
// ファイルが存在しない場合は空のマップを返す。
// ファイルが壊れている場合も警告ログを出して空のマップを返す。
// ここに保存されるのはUI向けのキャッシュ状態であり、破損を致命傷にしない。
func (s *FileStore) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	data := make(map[string]string)
	if err := json.Unmarshal(raw, &data); err != nil {
		slog.Warn("storage file is corrupt, treating as empty",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return make(map[string]string), nil
	}
	return data, nil
}

// save は全キーを一時ファイルに書き込み、リネームで差し替える。
func (s *FileStore) save(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage data: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace storage file: %w", err)
	}
	return nil
}

// compile-time interface check
var _ Store = (*FileStore)(nil)
