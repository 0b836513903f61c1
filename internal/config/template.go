package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
)

// varTag {{var "name" default required}}
var varTag = regexp.MustCompile(`\{\{var\s+"([^"]+)"\s+("[^"]*"|[^\s}]+)\s+(true|false)\s*\}\}`)

// generateConfigWithVars генерує конфігурацію з шаблону з використанням змінних
func generateConfigWithVars(templatePath, outputPath string, vars map[string]interface{}) error {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	rendered, err := RenderTemplate(string(content), vars)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Файл містить client secret
	if err := os.WriteFile(outputPath, []byte(rendered), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// RenderTemplate підставляє {{var}} теги і виконує шаблон; помилка, якщо обов'язкова змінна не задана
func RenderTemplate(content string, vars map[string]interface{}) (string, error) {
	processed, missing := processVarTags(content, vars)
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("required template variables are not set: %s", strings.Join(missing, ", "))
	}

	tmpl, err := template.New("config").Funcs(template.FuncMap{
		"list": func(items ...string) string {
			return formatList(items)
		},
	}).Parse(processed)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// processVarTags обробляє {{var "name" default_value required}} теги і повертає незадані обов'язкові змінні
func processVarTags(content string, vars map[string]interface{}) (string, []string) {
	var missing []string

	out := varTag.ReplaceAllStringFunc(content, func(match string) string {
		m := varTag.FindStringSubmatch(match)
		if len(m) != 4 {
			return match
		}

		name, defaultValue, required := m[1], m[2], m[3] == "true"

		if value, ok := vars[name]; ok && value != "" {
			return formatValue(value)
		}

		if required && (defaultValue == "" || defaultValue == `""`) {
			missing = append(missing, name)
			return `""`
		}

		return formatValue(parseDefaultValue(defaultValue))
	})

	return out, missing
}

// formatValue форматує значення як HCL літерал
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case []string:
		return formatList(v)
	case string:
		return quoteHCL(v)
	case int, int32, int64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return strconv.FormatFloat(toFloat(v), 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return quoteHCL(fmt.Sprintf("%v", v))
	}
}

func formatList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		quoted = append(quoted, quoteHCL(item))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// quoteHCL екранує рядок, щоб HCL не сприйняв його як інтерполяцію
func quoteHCL(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "${", "$${", "%{", "%%{")
	return `"` + r.Replace(s) + `"`
}

func toFloat(v interface{}) float64 {
	switch f := v.(type) {
	case float32:
		return float64(f)
	case float64:
		return f
	}
	return 0
}

// parseDefaultValue парсить дефолтне значення з template
func parseDefaultValue(defaultValue string) interface{} {
	if strings.HasPrefix(defaultValue, `"`) && strings.HasSuffix(defaultValue, `"`) {
		return strings.Trim(defaultValue, `"`)
	}

	if intVal, err := strconv.Atoi(defaultValue); err == nil {
		return intVal
	}

	if floatVal, err := strconv.ParseFloat(defaultValue, 64); err == nil {
		return floatVal
	}

	if boolVal, err := strconv.ParseBool(defaultValue); err == nil {
		return boolVal
	}

	return defaultValue
}
