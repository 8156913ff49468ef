package config

import (
	"time"
)

// DefaultSettingsFile is looked up in the working directory when no path is given.
const DefaultSettingsFile = "autotest.yaml"

// Settings holds the directories and execution parameters of an audit run.
type Settings struct {
	ScriptDir   string `yaml:"scriptDir" validate:"required"`
	BatchDir    string `yaml:"batchDir" validate:"required"`
	ReportDir   string `yaml:"reportDir" validate:"required"`
	TemplateDir string `yaml:"templateDir,omitempty"`

	Concurrency  int  `yaml:"concurrency,omitempty" validate:"min=1,max=32"`
	VisitTimeout int  `yaml:"visitTimeout,omitempty" validate:"min=1,max=3600"`
	TestTimeout  int  `yaml:"testTimeout,omitempty" validate:"min=1,max=3600"`
	Strict       bool `yaml:"strict,omitempty"`

	// Profile is the scoring profile path; empty selects the built-in profile.
	Profile string `yaml:"profile,omitempty"`

	Navigator NavigatorSettings     `yaml:"navigator,omitempty"`
	Engines   map[string]EngineSpec `yaml:"engines,omitempty" validate:"omitempty,dive,keys,category,endkeys"`
	Archive   ArchiveSettings       `yaml:"archive,omitempty"`
}

// NavigatorSettings configures page visits.
type NavigatorSettings struct {
	UserAgent    string   `yaml:"userAgent,omitempty"`
	MaxRedirects int      `yaml:"maxRedirects,omitempty" validate:"min=0,max=20"`
	Prohibited   []string `yaml:"prohibited,omitempty" validate:"omitempty,dive,required"`
	// Retries is how many times a rejected visit is attempted again.
	Retries int `yaml:"retries,omitempty" validate:"min=0,max=5"`
}

// EngineSpec binds a test category to an external engine.
type EngineSpec struct {
	Kind    string            `yaml:"kind" validate:"required,oneof=command http"`
	Command string            `yaml:"command,omitempty" validate:"required_if=Kind command"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	URL     string            `yaml:"url,omitempty" validate:"required_if=Kind http,omitempty,http_url"`
	// KeyEnv names the environment variable that holds the API key.
	KeyEnv string `yaml:"keyEnv,omitempty"`
	// Shape is the raw result shape the engine prints.
	Shape string `yaml:"shape" validate:"required,oneof=violations tally subtotals"`
}

// ArchiveSettings enables committing written files into a git repository.
type ArchiveSettings struct {
	Enabled     bool   `yaml:"enabled,omitempty"`
	Dir         string `yaml:"dir,omitempty" validate:"required_if=Enabled true"`
	AuthorName  string `yaml:"authorName,omitempty"`
	AuthorEmail string `yaml:"authorEmail,omitempty" validate:"omitempty,email"`
}

// DefaultSettings returns settings usable without a settings file.
func DefaultSettings() Settings {
	return Settings{
		ScriptDir:    "scripts",
		BatchDir:     "batches",
		ReportDir:    "reports",
		Concurrency:  4,
		VisitTimeout: 30,
		TestTimeout:  60,
		Navigator:    NavigatorSettings{UserAgent: "autotest", MaxRedirects: 10},
		Archive:      ArchiveSettings{AuthorName: "autotest", AuthorEmail: "autotest@example.org"},
	}
}

// VisitTimeoutDuration returns the per-host timeout.
func (s Settings) VisitTimeoutDuration() time.Duration {
	return time.Duration(s.VisitTimeout) * time.Second
}

// TestTimeoutDuration returns the per-test timeout.
func (s Settings) TestTimeoutDuration() time.Duration {
	return time.Duration(s.TestTimeout) * time.Second
}
