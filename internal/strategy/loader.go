package strategy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDefinition은 .json, .yaml, .yml 파일에서 전략 정의를 읽습니다
func LoadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("reading strategy file: %w", err)
	}
	return ParseDefinition(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// ParseDefinition은 주어진 포맷("json" 또는 "yaml"/"yml")의 정의를
// 디코딩합니다. 알 수 없는 필드는 거부됩니다.
func ParseDefinition(data []byte, format string) (Definition, error) {
	var def Definition
	switch strings.ToLower(format) {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return Definition{}, configErr("definition", fmt.Errorf("decoding json: %w", err))
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return Definition{}, configErr("definition", fmt.Errorf("decoding yaml: %w", err))
		}
	default:
		return Definition{}, configErr("definition", fmt.Errorf("unsupported format %q", format))
	}
	return def, nil
}
