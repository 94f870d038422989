package crew

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FieldType 是结构化输出 schema 支持的字段类型。
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldBool   FieldType = "bool"
	FieldList   FieldType = "list"
)

// OutputSchema 把任务的结构化输出声明为 字段名 -> 类型 的映射。
type OutputSchema map[string]FieldType

// Validate 检查 schema 中声明的类型是否受支持。
func (s OutputSchema) Validate() error {
	for field, typ := range s {
		switch typ {
		case FieldString, FieldNumber, FieldBool, FieldList:
		default:
			return fmt.Errorf("字段 %q 的类型 %q 不受支持", field, typ)
		}
	}
	return nil
}

// Fields 按字典序返回 schema 的字段名，保证提示词的确定性。
func (s OutputSchema) Fields() []string {
	fields := make([]string, 0, len(s))
	for field := range s {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Fallback 为 schema 生成类型回退对象:
// bool -> false, list -> [], number -> 0, string -> ""。
func (s OutputSchema) Fallback() map[string]interface{} {
	out := make(map[string]interface{}, len(s))
	for field, typ := range s {
		switch typ {
		case FieldBool:
			out[field] = false
		case FieldList:
			out[field] = []interface{}{}
		case FieldNumber:
			out[field] = 0
		default:
			out[field] = ""
		}
	}
	return out
}

// Example 为提示词生成示例对象，字符串字段使用占位符 "<value>"。
func (s OutputSchema) Example() map[string]interface{} {
	out := s.Fallback()
	for field, typ := range s {
		if typ == FieldString {
			out[field] = "<value>"
		}
	}
	return out
}

// CheckTypes 校验解析后的对象是否符合 schema:
// 每个声明的字段都必须存在且类型正确。
func (s OutputSchema) CheckTypes(data map[string]interface{}) error {
	for _, field := range s.Fields() {
		value, ok := data[field]
		if !ok {
			return fmt.Errorf("缺少字段 %q", field)
		}
		switch s[field] {
		case FieldBool:
			if _, ok := value.(bool); !ok {
				return fmt.Errorf("字段 %q 应为 bool", field)
			}
		case FieldNumber:
			// JSON 数字统一解码为 float64。
			if _, ok := value.(float64); !ok {
				return fmt.Errorf("字段 %q 应为 number", field)
			}
		case FieldList:
			if _, ok := value.([]interface{}); !ok {
				return fmt.Errorf("字段 %q 应为 list", field)
			}
		case FieldString:
			if _, ok := value.(string); !ok {
				return fmt.Errorf("字段 %q 应为 string", field)
			}
		}
	}
	return nil
}

// ExtractJSON 从模型输出中提取第一个 JSON 对象或数组:
// 优先取第一个 '{' 到最后一个 '}' 之间的内容，其次是 '[' 到 ']'，
// 都不存在时返回去除首尾空白的原文。
func ExtractJSON(text string) string {
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start != -1 && end > start {
		return text[start : end+1]
	}
	if start, end := strings.Index(text, "["), strings.LastIndex(text, "]"); start != -1 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// ParseAndValidate 解析模型输出并按 schema 校验。
// 输出先按原文解析，失败后再尝试 ExtractJSON 提取的候选。
func (s OutputSchema) ParseAndValidate(text string) (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		candidate := ExtractJSON(text)
		if err := json.Unmarshal([]byte(candidate), &data); err != nil {
			return nil, fmt.Errorf("输出不是合法的 JSON 对象: %w", err)
		}
	}
	if err := s.CheckTypes(data); err != nil {
		return nil, err
	}
	return data, nil
}
