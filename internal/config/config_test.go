package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/scoring"
	autotesterrors "github.com/alexisbeaulieu97/autotest/pkg/errors"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func requireValidation(t *testing.T, err error, subject, fieldOrMessage string) {
	t.Helper()

	require.Error(t, err)
	var validationErr *autotesterrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, subject, validationErr.Subject)
	require.Contains(t, validationErr.Field+" "+validationErr.Message, fieldOrMessage)
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	valid := `what: a11y audit
strict: false
acts:
  - type: url
    which: https://www.w3.org/
    what: World Wide Web Consortium
  - type: test
    which: axe
  - type: test
    which: bulk
  - type: score
    which: a11y
`

	jsonScript := `{"what": "json", "acts": [{"type": "url", "which": "https://example.org", "what": "Ex"}, {"type": "score", "which": "a11y"}]}`

	broken := `what: [1, 2
acts: []
`

	cases := []struct {
		name     string
		contents string
		batched  bool
		assert   func(t *testing.T, script *model.Script, err error)
	}{
		{
			name:     "valid yaml script",
			contents: valid,
			assert: func(t *testing.T, script *model.Script, err error) {
				require.NoError(t, err)
				require.Equal(t, "a11y audit", script.What)
				require.Equal(t, []string{"axe", "bulk"}, script.Categories())
				require.Equal(t, model.ActScore, script.Acts[3].Type)
			},
		},
		{
			name:     "json is accepted",
			contents: jsonScript,
			assert: func(t *testing.T, script *model.Script, err error) {
				require.NoError(t, err)
				require.Len(t, script.Acts, 2)
			},
		},
		{
			name:     "malformed yaml is a parse error with line",
			contents: broken,
			assert: func(t *testing.T, _ *model.Script, err error) {
				var parseErr *autotesterrors.ParseError
				require.ErrorAs(t, err, &parseErr)
				require.Positive(t, parseErr.Line)
			},
		},
		{
			name:     "missing acts is invalid",
			contents: "what: nothing\n",
			assert: func(t *testing.T, _ *model.Script, err error) {
				requireValidation(t, err, autotesterrors.SubjectScript, "acts")
			},
		},
		{
			name:     "batched script may omit url act",
			contents: "what: batched\nacts:\n  - type: test\n    which: axe\n  - type: score\n",
			batched:  true,
			assert: func(t *testing.T, script *model.Script, err error) {
				require.NoError(t, err)
				require.Len(t, script.Acts, 2)
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := writeTemp(t, "script.yaml", tc.contents)
			script, err := LoadScript(path, tc.batched)
			tc.assert(t, script, err)
		})
	}
}

func TestValidateScriptRules(t *testing.T) {
	t.Parallel()

	urlAct := model.Act{Type: model.ActURL, Which: "https://example.org", What: "Example"}
	score := model.Act{Type: model.ActScore, Which: "a11y"}
	test := func(which string) model.Act { return model.Act{Type: model.ActTest, Which: which} }

	tests := []struct {
		name    string
		acts    []model.Act
		batched bool
		want    string
	}{
		{name: "no url act", acts: []model.Act{test("axe"), score}, want: "must begin with a url act"},
		{name: "url not first", acts: []model.Act{test("axe"), urlAct, score}, batched: true, want: "url act must be first"},
		{name: "url not http", acts: []model.Act{{Type: model.ActURL, Which: "ftp://x"}, score}, want: "not an http(s) URL"},
		{name: "score not last", acts: []model.Act{urlAct, score, test("axe")}, want: "score act must be last"},
		{name: "missing score", acts: []model.Act{urlAct, test("axe")}, want: "exactly one score act"},
		{name: "two scores", acts: []model.Act{urlAct, score, score}, want: "score act must be last"},
		{name: "duplicate category", acts: []model.Act{urlAct, test("axe"), test("axe"), score}, want: "duplicate test category"},
		{name: "bad category name", acts: []model.Act{urlAct, test("axe-core"), score}, want: "only letters"},
		{name: "reserved category", acts: []model.Act{urlAct, test("log"), score}, want: "reserved"},
		{name: "comparison rejected", acts: []model.Act{urlAct, {Type: model.ActComparison, Which: "x"}, score}, want: "compare command"},
		{name: "unknown act type", acts: []model.Act{urlAct, {Type: "click"}, score}, want: "oneof"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateScript(&model.Script{What: "s", Acts: tt.acts}, tt.batched)
			requireValidation(t, err, autotesterrors.SubjectScript, tt.want)
		})
	}

	require.NoError(t, ValidateScript(&model.Script{What: "ok", Acts: []model.Act{urlAct, test("axe"), test("wave"), score}}, false))
	requireValidation(t, ValidateScript(nil, false), autotesterrors.SubjectScript, "nil")
}

func TestLoadBatch(t *testing.T) {
	t.Parallel()

	valid := `what: federal agencies
hosts:
  - which: w3c
    what: World Wide Web Consortium
    url: https://www.w3.org/
  - which: ssa
    what: Social Security Administration
    url: https://www.ssa.gov/
`
	path := writeTemp(t, "batch.yaml", valid)
	batch, err := LoadBatch(path)
	require.NoError(t, err)
	require.Len(t, batch.Hosts, 2)
	require.Equal(t, "ssa", batch.Hosts[1].Which)

	tests := []struct {
		name  string
		batch model.Batch
		want  string
	}{
		{name: "no hosts", batch: model.Batch{What: "x"}, want: "hosts"},
		{name: "bad url", batch: model.Batch{What: "x", Hosts: []model.Host{{Which: "a", URL: "not a url"}}}, want: "hosts[0].url"},
		{name: "missing which", batch: model.Batch{What: "x", Hosts: []model.Host{{URL: "https://a.org"}}}, want: "hosts[0].which"},
		{name: "duplicate host", batch: model.Batch{What: "x", Hosts: []model.Host{{Which: "a", URL: "https://a.org"}, {Which: "a", URL: "https://b.org"}}}, want: "duplicate host"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			requireValidation(t, ValidateBatch(&tt.batch), autotesterrors.SubjectBatch, tt.want)
		})
	}
}

func TestLoadSettingsDefaultsAndEnv(t *testing.T) {
	path := writeTemp(t, "autotest.yaml", `reportDir: out/reports
concurrency: 8
engines:
  axe:
    kind: command
    command: axe-runner
    shape: violations
  wave:
    kind: http
    url: https://wave.webaim.org/api/request
    keyEnv: WAVE_KEY
    shape: violations
`)
	t.Setenv("AUTOTEST_SCRIPTDIR", "/srv/scripts")
	t.Setenv("AUTOTEST_CONCURRENCY", "2")

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	require.Equal(t, "/srv/scripts", settings.ScriptDir)
	require.Equal(t, "out/reports", settings.ReportDir)
	require.Equal(t, "batches", settings.BatchDir)
	require.Equal(t, 2, settings.Concurrency)
	require.Equal(t, 30, settings.VisitTimeout)
	require.Len(t, settings.Engines, 2)
	require.Equal(t, "WAVE_KEY", settings.Engines["wave"].KeyEnv)
}

func TestLoadSettingsExplicitMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	var parseErr *autotesterrors.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{name: "concurrency too high", mutate: func(s *Settings) { s.Concurrency = 64 }, want: "concurrency"},
		{name: "command engine without command", mutate: func(s *Settings) {
			s.Engines = map[string]EngineSpec{"axe": {Kind: "command", Shape: "violations"}}
		}, want: "command"},
		{name: "http engine bad url", mutate: func(s *Settings) {
			s.Engines = map[string]EngineSpec{"wave": {Kind: "http", URL: "::", Shape: "violations"}}
		}, want: "url"},
		{name: "engine with bad category", mutate: func(s *Settings) {
			s.Engines = map[string]EngineSpec{"axe_core": {Kind: "command", Command: "x", Shape: "violations"}}
		}, want: "category"},
		{name: "engine for reserved category", mutate: func(s *Settings) {
			s.Engines = map[string]EngineSpec{"log": {Kind: "command", Command: "x", Shape: "subtotals"}}
		}, want: "reserved"},
		{name: "archive without dir", mutate: func(s *Settings) { s.Archive.Enabled = true }, want: "dir"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			settings := DefaultSettings()
			tt.mutate(&settings)
			requireValidation(t, ValidateSettings(&settings), autotesterrors.SubjectSettings, tt.want)
		})
	}

	settings := DefaultSettings()
	require.NoError(t, ValidateSettings(&settings))
}

func TestApplyEnvRejectsBadConcurrency(t *testing.T) {
	t.Parallel()

	settings := DefaultSettings()
	err := ApplyEnv(&settings, func(key string) (string, bool) {
		if key == "AUTOTEST_CONCURRENCY" {
			return "many", true
		}
		return "", false
	})
	requireValidation(t, err, autotesterrors.SubjectSettings, "integer")
}

func TestLoadProfile(t *testing.T) {
	t.Parallel()

	profile, err := LoadProfile("")
	require.NoError(t, err)
	require.Equal(t, "a11y", profile.ScoreProc)
	require.NoError(t, ValidateProfile(profile))

	path := writeTemp(t, "profile.yaml", `scoreProc: bulkOnly
version: "1"
categories:
  bulk:
    inference: 50
    rule:
      kind: power
      metric: visibleElements
      factor: 0.15
      threshold: 250
      exponent: 0.9
bands:
  - name: fine
    below: 100
  - name: poor
`)
	profile, err = LoadProfile(path)
	require.NoError(t, err)
	require.Equal(t, 50, profile.Categories["bulk"].Inference)
}

func TestValidateProfileRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*scoring.Profile)
		want   string
	}{
		{name: "unbounded band not last", mutate: func(p *scoring.Profile) { p.Bands[1].Below = 0 }, want: "unbounded"},
		{name: "bands descend", mutate: func(p *scoring.Profile) { p.Bands[1].Below = 100 }, want: "ascend"},
		{name: "power without metric", mutate: func(p *scoring.Profile) {
			c := p.Categories["bulk"]
			c.Rule.Metric = ""
			p.Categories["bulk"] = c
		}, want: "metric"},
		{name: "unknown rule kind", mutate: func(p *scoring.Profile) {
			p.Categories["zIndex"] = scoring.Category{Rule: scoring.Rule{Kind: "magic"}}
		}, want: "kind"},
		{name: "negative inference", mutate: func(p *scoring.Profile) {
			c := p.Categories["axe"]
			c.Inference = -1
			p.Categories["axe"] = c
		}, want: "inference"},
		{name: "category name", mutate: func(p *scoring.Profile) {
			p.Categories["bad-name"] = scoring.Category{Rule: scoring.Rule{Kind: scoring.RuleTally, Weight: 1}}
		}, want: "category"},
		{name: "missing version", mutate: func(p *scoring.Profile) { p.Version = "" }, want: "version"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			profile := scoring.DefaultProfile()
			tt.mutate(profile)
			requireValidation(t, ValidateProfile(profile), autotesterrors.SubjectProfile, tt.want)
		})
	}
}

func TestValidatorInstanceIsShared(t *testing.T) {
	t.Parallel()

	require.Same(t, validatorInstance(), validatorInstance())
}
