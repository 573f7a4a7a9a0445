package refdata

import (
	"sync/atomic"
	"time"
)

// Snapshot 로드된 테이블과 메타데이터 (불변)
type Snapshot struct {
	Tables   *Tables
	Hash     string
	Source   string // "embedded" 또는 파일 경로
	LoadedAt time.Time
}

// Store 동시성 안전한 참조 데이터 보관소
// ⭐ SSOT: 요청은 시작 시 Current()로 스냅샷을 잡고 끝까지 그 스냅샷만 사용
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store holding the given tables
func NewStore(t *Tables, source string) (*Store, error) {
	s := &Store{}
	if err := s.Swap(t, source); err != nil {
		return nil, err
	}
	return s, nil
}

// NewDefaultStore creates a store from the embedded tables
func NewDefaultStore() (*Store, error) {
	t, err := Default()
	if err != nil {
		return nil, err
	}
	return NewStore(t, "embedded")
}

// Open loads tables from path, or the embedded defaults when path is empty
func Open(path string) (*Store, error) {
	if path == "" {
		return NewDefaultStore()
	}
	t, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewStore(t, path)
}

// Current returns the active tables
func (s *Store) Current() *Tables {
	return s.current.Load().Tables
}

// Snapshot returns the active snapshot with its metadata
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Swap validates and installs new tables
func (s *Store) Swap(t *Tables, source string) error {
	if err := Validate(t); err != nil {
		return err
	}
	hash, err := Hash(t)
	if err != nil {
		return err
	}
	s.current.Store(&Snapshot{
		Tables:   t,
		Hash:     hash,
		Source:   source,
		LoadedAt: time.Now(),
	})
	return nil
}

// Reload re-reads path and swaps it in.
// 실패 시 기존 스냅샷 유지. changed는 해시가 달라졌는지 여부.
func (s *Store) Reload(path string) (changed bool, err error) {
	var t *Tables
	if path == "" {
		t, err = Default()
	} else {
		t, err = Load(path)
	}
	if err != nil {
		return false, err
	}

	prev := s.current.Load().Hash
	source := path
	if source == "" {
		source = "embedded"
	}
	if err := s.Swap(t, source); err != nil {
		return false, err
	}
	return prev != s.current.Load().Hash, nil
}
