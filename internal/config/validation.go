package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/scoring"
	autotesterrors "github.com/alexisbeaulieu97/autotest/pkg/errors"
)

// ValidateScript checks a script's structure. A batched script may omit its
// url act, since each host supplies the target.
func ValidateScript(script *model.Script, batched bool) error {
	if script == nil {
		return autotesterrors.NewScriptInvalid("", "script is nil", nil)
	}
	if err := validatorInstance().Struct(script); err != nil {
		return convertValidationError(autotesterrors.SubjectScript, err)
	}

	urlActs, scoreActs := 0, 0
	seen := make(map[string]int)
	last := len(script.Acts) - 1

	for i, act := range script.Acts {
		switch act.Type {
		case model.ActURL:
			urlActs++
			if i != 0 {
				return autotesterrors.NewScriptInvalid(fieldForAct(i, "type"), "url act must be first", nil)
			}
			if !batched && !isHTTPURL(act.Which) {
				return autotesterrors.NewScriptInvalid(fieldForAct(i, "which"), fmt.Sprintf("%q is not an http(s) URL", act.Which), nil)
			}
		case model.ActTest:
			if !isCategory(act.Which) {
				return autotesterrors.NewScriptInvalid(fieldForAct(i, "which"), fmt.Sprintf("test category %q must contain only letters", act.Which), nil)
			}
			if isReserved(act.Which) {
				return autotesterrors.NewScriptInvalid(fieldForAct(i, "which"), fmt.Sprintf("test category %q is reserved", act.Which), nil)
			}
			if prev, dup := seen[act.Which]; dup {
				return autotesterrors.NewScriptInvalid(fieldForAct(i, "which"), fmt.Sprintf("duplicate test category %q (first at acts[%d])", act.Which, prev), nil)
			}
			seen[act.Which] = i
		case model.ActScore:
			scoreActs++
			if i != last {
				return autotesterrors.NewScriptInvalid(fieldForAct(i, "type"), "score act must be last", nil)
			}
		case model.ActComparison:
			return autotesterrors.NewScriptInvalid(fieldForAct(i, "type"), "comparison acts are not supported in per-host scripts; use the compare command", nil)
		}
	}

	if urlActs == 0 && !batched {
		return autotesterrors.NewScriptInvalid("acts[0].type", "script without a batch must begin with a url act", nil)
	}
	if scoreActs != 1 {
		return autotesterrors.NewScriptInvalid("acts", fmt.Sprintf("script must end with exactly one score act, found %d", scoreActs), nil)
	}
	return nil
}

// ValidateBatch checks a batch's structure.
func ValidateBatch(batch *model.Batch) error {
	if batch == nil {
		return autotesterrors.NewBatchInvalid("", "batch is nil", nil)
	}
	if err := validatorInstance().Struct(batch); err != nil {
		return convertValidationError(autotesterrors.SubjectBatch, err)
	}

	seen := make(map[string]int, len(batch.Hosts))
	for i, host := range batch.Hosts {
		if prev, dup := seen[host.Which]; dup {
			return autotesterrors.NewBatchInvalid(fmt.Sprintf("hosts[%d].which", i), fmt.Sprintf("duplicate host %q (first at hosts[%d])", host.Which, prev), nil)
		}
		seen[host.Which] = i
	}
	return nil
}

// ValidateSettings checks settings ranges and engine bindings.
func ValidateSettings(settings *Settings) error {
	if settings == nil {
		return autotesterrors.NewValidationError(autotesterrors.SubjectSettings, "", "settings are nil", nil)
	}
	if err := validatorInstance().Struct(settings); err != nil {
		return convertValidationError(autotesterrors.SubjectSettings, err)
	}
	for name := range settings.Engines {
		if isReserved(name) {
			return autotesterrors.NewValidationError(autotesterrors.SubjectSettings, "engines."+name, "category is reserved", nil)
		}
	}
	return nil
}

// ValidateProfile checks a scoring profile, including band ordering and the
// per-kind rule parameters.
func ValidateProfile(profile *scoring.Profile) error {
	if profile == nil {
		return autotesterrors.NewValidationError(autotesterrors.SubjectProfile, "", "profile is nil", nil)
	}
	if err := validatorInstance().Struct(profile); err != nil {
		return convertValidationError(autotesterrors.SubjectProfile, err)
	}

	for _, name := range profile.CategoryNames() {
		if name == model.TotalKey {
			return autotesterrors.NewValidationError(autotesterrors.SubjectProfile, "categories.total", "total is reserved", nil)
		}
		rule := profile.Categories[name].Rule
		field := "categories." + name + ".rule"
		switch rule.Kind {
		case scoring.RulePower:
			if rule.Metric == "" {
				return autotesterrors.NewValidationError(autotesterrors.SubjectProfile, field+".metric", "power rule needs a metric", nil)
			}
			if rule.Exponent <= 0 {
				return autotesterrors.NewValidationError(autotesterrors.SubjectProfile, field+".exponent", "power rule needs a positive exponent", nil)
			}
		case scoring.RuleTally:
			if rule.Weight == 0 && len(rule.ValueWeights) == 0 {
				return autotesterrors.NewValidationError(autotesterrors.SubjectProfile, field+".weight", "tally rule needs a weight", nil)
			}
		}
	}

	prev := 0
	for i, band := range profile.Bands {
		field := fmt.Sprintf("bands[%d].below", i)
		if band.Below == 0 {
			if i != len(profile.Bands)-1 {
				return autotesterrors.NewValidationError(autotesterrors.SubjectProfile, field, "only the last band may be unbounded", nil)
			}
			continue
		}
		if band.Below <= prev {
			return autotesterrors.NewValidationError(autotesterrors.SubjectProfile, field, fmt.Sprintf("bounds must ascend, %d follows %d", band.Below, prev), nil)
		}
		prev = band.Below
	}
	return nil
}

// convertValidationError normalizes validator errors into autotest validation errors.
func convertValidationError(subject string, err error) error {
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return autotesterrors.NewValidationError(subject, field, msg, err)
	}

	return autotesterrors.NewValidationError(subject, "", err.Error(), err)
}

// yamlishFieldName drops the root type from a namespace such as Script.acts[2].type.
func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldForAct(index int, field string) string {
	return fmt.Sprintf("acts[%d].%s", index, field)
}

func isHTTPURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return (scheme == "http" || scheme == "https") && parsed.Host != ""
}
