package config

import (
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// decoder 将配置文件内容解码为通用的 map
type decoder func(data []byte) (map[string]any, error)

var decoders = map[string]decoder{
	"yaml": decodeYaml,
	"yml":  decodeYaml,
	"json": decodeJson,
	"toml": decodeToml,
	"ini":  decodeIni,
}

// formatOf 根据文件扩展名判断配置格式
func formatOf(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

func decode(data []byte, format string) (map[string]any, error) {
	fn, ok := decoders[format]
	if !ok {
		return nil, errors.Errorf("unsupported config format %q", format)
	}
	return fn(data)
}

func decodeYaml(data []byte) (map[string]any, error) {
	var result map[string]any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode YAML")
	}
	return result, nil
}

func decodeJson(data []byte) (map[string]any, error) {
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode JSON")
	}
	return result, nil
}

func decodeToml(data []byte) (map[string]any, error) {
	var result map[string]any
	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode TOML")
	}
	return result, nil
}

// decodeIni 默认 section 中的键放在顶层，其他 section 作为嵌套 map
// section 名中的 . 表示更深的嵌套，如 [log.file]
func decodeIni(data []byte) (map[string]any, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         true,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode INI")
	}

	result := map[string]any{}
	for _, section := range cfg.Sections() {
		target := result
		if name := section.Name(); name != ini.DefaultSection {
			for _, part := range strings.Split(name, ".") {
				sub, ok := target[part].(map[string]any)
				if !ok {
					sub = map[string]any{}
					target[part] = sub
				}
				target = sub
			}
		}
		for _, key := range section.Keys() {
			target[key.Name()] = parseIniValue(key.String())
		}
	}
	return result, nil
}

// parseIniValue ini 中的值都是字符串，尝试还原为布尔值和数字
func parseIniValue(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
