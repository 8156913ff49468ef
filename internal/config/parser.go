package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/scoring"
	autotesterrors "github.com/alexisbeaulieu97/autotest/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// LoadSettings reads a settings file, applies AUTOTEST_* environment
// overrides and validates the result. A missing default settings file yields
// the defaults.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	explicit := path != ""
	if !explicit {
		path = DefaultSettingsFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return nil, autotesterrors.NewParseError(path, extractLine(err), err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, autotesterrors.NewParseError(path, 0, err)
	}

	if err := ApplyEnv(&settings, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := ValidateSettings(&settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// ParseScript decodes a script file. JSON scripts are accepted since JSON is
// read as YAML.
func ParseScript(path string) (*model.Script, error) {
	var script model.Script
	if err := decodeFile(path, &script); err != nil {
		return nil, err
	}
	return &script, nil
}

// LoadScript parses and validates a script.
func LoadScript(path string, batched bool) (*model.Script, error) {
	script, err := ParseScript(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateScript(script, batched); err != nil {
		return nil, err
	}
	return script, nil
}

// ParseBatch decodes a batch file.
func ParseBatch(path string) (*model.Batch, error) {
	var batch model.Batch
	if err := decodeFile(path, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

// LoadBatch parses and validates a batch.
func LoadBatch(path string) (*model.Batch, error) {
	batch, err := ParseBatch(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateBatch(batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// LoadProfile reads and validates a scoring profile. An empty path returns
// the built-in profile.
func LoadProfile(path string) (*scoring.Profile, error) {
	if path == "" {
		return scoring.DefaultProfile(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, autotesterrors.NewParseError(path, 0, err)
	}
	profile, err := scoring.DecodeProfile(data)
	if err != nil {
		return nil, autotesterrors.NewParseError(path, extractLine(err), err)
	}
	if err := ValidateProfile(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return autotesterrors.NewParseError(path, 0, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return autotesterrors.NewParseError(path, extractLine(err), err)
	}
	return nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}
