package systemd

import (
	"bufio"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DictationUnit is the dictation daemon service, installed by both variants.
	DictationUnit = "jnickg-dictate.service"
	// StreamingUnit is the streaming transcription server, installed by the streaming variant.
	StreamingUnit = "jnickg-dictate-streaming.service"
	// YdotooldUnit is the input helper service written for the ydotool input method.
	YdotooldUnit = "ydotoold.service"
)

const (
	envModel         = "JNICKG_DICTATE_MODEL"
	envInputMethod   = "JNICKG_DICTATE_INPUT_METHOD"
	envStreamingPort = "JNICKG_DICTATE_STREAMING_PORT"
)

// ErrMissingPlaceholder is returned when a template lacks one of the
// Environment= lines the renderer substitutes.
var ErrMissingPlaceholder = errors.New("template placeholder missing")

// ErrMultilineValue is returned when a substituted value would start a new
// unit file line.
var ErrMultilineValue = errors.New("value contains a line break")

//go:embed templates/*.service
var embedded embed.FS

// Values are the settings substituted into unit templates.
type Values struct {
	Model         string
	InputMethod   string
	StreamingPort int
	BinDir        string
	DataDir       string
	SubmoduleDir  string
}

// Unit is one rendered service file.
type Unit struct {
	Name    string
	Content []byte
}

// UnitNames returns the rendered units for a variant, streaming server first
// so callers activate it before the dictation daemon.
func UnitNames(streaming bool) []string {
	if streaming {
		return []string{StreamingUnit, DictationUnit}
	}
	return []string{DictationUnit}
}

// LoadTemplate returns the template for name, preferring a file in dir when
// dir is set and contains one.
func LoadTemplate(dir, name string) ([]byte, error) {
	if strings.TrimSpace(dir) != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
	}
	data, err := embedded.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("no template for %s: %w", name, err)
	}
	return data, nil
}

// Render substitutes values into template. Each of the model, input method
// and streaming port Environment= lines is replaced whole; a template missing
// any of them is rejected.
func Render(template []byte, values Values) ([]byte, error) {
	if err := values.checkSingleLine(); err != nil {
		return nil, err
	}
	replacements := []struct {
		prefix string
		value  string
	}{
		{"Environment=" + envModel + "=", values.Model},
		{"Environment=" + envInputMethod + "=", values.InputMethod},
		{"Environment=" + envStreamingPort + "=", strconv.Itoa(values.StreamingPort)},
	}
	found := make([]bool, len(replacements))

	var out bytes.Buffer
	out.Grow(len(template) + 64)
	scanner := bufio.NewScanner(bytes.NewReader(template))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		for i, r := range replacements {
			if strings.HasPrefix(trimmed, r.prefix) {
				line = r.prefix + r.value
				found[i] = true
				break
			}
		}
		out.WriteString(expandPathTokens(line, values))
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}

	var missing []string
	for i, ok := range found {
		if !ok {
			missing = append(missing, replacements[i].prefix)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingPlaceholder, strings.Join(missing, ", "))
	}
	return out.Bytes(), nil
}

func (v Values) checkSingleLine() error {
	for _, field := range []struct{ name, value string }{
		{"model", v.Model},
		{"input method", v.InputMethod},
		{"bin dir", v.BinDir},
		{"data dir", v.DataDir},
		{"submodule dir", v.SubmoduleDir},
	} {
		if strings.ContainsAny(field.value, "\r\n") {
			return fmt.Errorf("%w: %s %q", ErrMultilineValue, field.name, field.value)
		}
	}
	return nil
}

func expandPathTokens(line string, values Values) string {
	if !strings.Contains(line, "@") {
		return line
	}
	return strings.NewReplacer(
		"@BIN_DIR@", values.BinDir,
		"@DATA_DIR@", values.DataDir,
		"@SUBMODULE_DIR@", values.SubmoduleDir,
	).Replace(line)
}

// RenderUnits loads and renders every named unit. Nothing is returned unless
// all of them render.
func RenderUnits(templatesDir string, names []string, values Values) ([]Unit, error) {
	units := make([]Unit, 0, len(names))
	for _, name := range names {
		template, err := LoadTemplate(templatesDir, name)
		if err != nil {
			return nil, err
		}
		content, err := Render(template, values)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		units = append(units, Unit{Name: name, Content: content})
	}
	return units, nil
}

// YdotooldUnitContent renders the input helper unit for the given daemon binary.
func YdotooldUnitContent(templatesDir, daemonPath string) ([]byte, error) {
	template, err := LoadTemplate(templatesDir, YdotooldUnit)
	if err != nil {
		return nil, err
	}
	return []byte(strings.ReplaceAll(string(template), "@YDOTOOLD@", daemonPath)), nil
}
