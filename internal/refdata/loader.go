package refdata

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultYAML []byte

// Default returns a fresh copy of the embedded reference tables
func Default() (*Tables, error) {
	t, err := Parse(defaultYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded refdata: %w", err)
	}
	return t, nil
}

// MustDefault is Default for wiring code and tests that cannot proceed without tables
func MustDefault() *Tables {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// Load reads a YAML table file
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document
func Parse(data []byte) (*Tables, error) {
	var t Tables
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&t); err != nil {
		return nil, err
	}

	if err := Validate(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Hash generates SHA256 hash from Tables (canonical JSON)
// encoding/json은 map 키를 정렬하므로 재현 가능
func Hash(t *Tables) (string, error) {
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
