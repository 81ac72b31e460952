package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrNoFilePath = errors.New("no file path provided")

// LoadYamlFile flattens a YAML file into environment variables.
// Nested keys are joined with "_" and upper cased: database.host becomes DATABASE_HOST.
// Variables already set in the environment win over the file.
func LoadYamlFile(filepath string) error {
	if filepath == "" {
		return ErrNoFilePath
	}

	file, err := os.Open(filepath)
	if err != nil {
		return fmt.Errorf("could not open YAML file: %w", err)
	}
	defer file.Close()

	vars, err := flatten(file)
	if err != nil {
		return fmt.Errorf("error reading YAML file: %w", err)
	}

	for key, value := range vars {
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("could not set env var %s: %w", key, err)
		}
	}
	return nil
}

type section struct {
	name   string
	indent int
}

// flatten reads the subset of YAML the config files use: nested mappings,
// scalar values, "- item" lists (joined with commas) and ${VAR:-default} values.
func flatten(r io.Reader) (map[string]string, error) {
	vars := make(map[string]string)
	var (
		stack   []section
		listKey string
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := stripComment(scanner.Text())
		content := strings.TrimSpace(line)
		if content == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " "))

		if item, ok := strings.CutPrefix(content, "- "); ok && listKey != "" {
			value := expand(unquote(strings.TrimSpace(item)))
			if vars[listKey] == "" {
				vars[listKey] = value
			} else {
				vars[listKey] += "," + value
			}
			continue
		}
		listKey = ""

		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}

		key, value, ok := strings.Cut(content, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if value == "" {
			// a section, or a list whose items follow
			stack = append(stack, section{name: key, indent: indent})
			listKey = envKey(stack)
			continue
		}

		vars[envKey(append(stack, section{name: key}))] = expand(unquote(value))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vars, nil
}

func envKey(stack []section) string {
	names := make([]string, len(stack))
	for i, s := range stack {
		names[i] = s.name
	}
	return strings.ToUpper(strings.Join(names, "_"))
}

// expand resolves ${VAR:-default} and ${VAR}.
func expand(value string) string {
	inner, ok := strings.CutPrefix(value, "${")
	if !ok || !strings.HasSuffix(inner, "}") {
		return value
	}
	inner = strings.TrimSuffix(inner, "}")

	name, def, _ := strings.Cut(inner, ":-")
	if v := os.Getenv(strings.TrimSpace(name)); v != "" {
		return v
	}
	return strings.TrimSpace(def)
}

func unquote(value string) string {
	return strings.Trim(value, `"'`)
}

// stripComment drops a trailing " #" comment outside of quotes.
func stripComment(line string) string {
	var quote rune
	for i, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '#' && (i == 0 || line[i-1] == ' ' || line[i-1] == '\t'):
			return line[:i]
		}
	}
	return line
}
