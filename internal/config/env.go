package config

import (
	"fmt"
	"strconv"

	autotesterrors "github.com/alexisbeaulieu97/autotest/pkg/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AUTOTEST_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides settings from AUTOTEST_SCRIPTDIR, AUTOTEST_BATCHDIR,
// AUTOTEST_REPORTDIR, AUTOTEST_TEMPLATEDIR, AUTOTEST_PROFILE and
// AUTOTEST_CONCURRENCY.
func ApplyEnv(s *Settings, lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}

	strs := map[string]*string{
		"SCRIPTDIR":   &s.ScriptDir,
		"BATCHDIR":    &s.BatchDir,
		"REPORTDIR":   &s.ReportDir,
		"TEMPLATEDIR": &s.TemplateDir,
		"PROFILE":     &s.Profile,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return autotesterrors.NewValidationError(autotesterrors.SubjectSettings, "concurrency", fmt.Sprintf("%sCONCURRENCY must be an integer, got %q", EnvPrefix, v), err)
		}
		s.Concurrency = n
	}
	return nil
}
