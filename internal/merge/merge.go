// Package merge adds the result of a newly run test to previously stored
// reports without rerunning the rest of their acts.
package merge

import (
	"errors"
	"fmt"

	"github.com/alexisbeaulieu97/autotest/internal/logger"
	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
	autotesterrors "github.com/alexisbeaulieu97/autotest/pkg/errors"
)

// AddTest returns a copy of existing that also carries newTest's result for
// category. The test act is inserted just before the trailing score act and
// its contribution is added to the total. Neither input is modified.
func AddTest(existing, newTest model.Report, category string) (model.Report, error) {
	if existing.Target() != newTest.Target() {
		return model.Report{}, fmt.Errorf("reports describe different targets: %q and %q", existing.Target(), newTest.Target())
	}

	var act *model.Act
	for i := range newTest.Acts {
		if newTest.Acts[i].Type == model.ActTest && newTest.Acts[i].Which == category {
			act = &newTest.Acts[i]
			break
		}
	}
	if act == nil {
		return model.Report{}, fmt.Errorf("new report for %q has no %s test act", newTest.Target(), category)
	}
	newScore := newTest.Score()
	if newScore == nil {
		return model.Report{}, fmt.Errorf("new report for %q has no score", newTest.Target())
	}
	value, inferred, ok := newScore.Contribution(category)
	if !ok {
		return model.Report{}, fmt.Errorf("new report for %q did not score %s", newTest.Target(), category)
	}

	merged := existing.Clone()
	if _, present := merged.Tests()[category]; present {
		return model.Report{}, fmt.Errorf("report for %q already has a %s test", existing.Target(), category)
	}
	scoreAct := merged.ScoreAct()
	if scoreAct == nil || scoreAct.Score == nil {
		return model.Report{}, fmt.Errorf("report for %q has no score act", existing.Target())
	}
	if _, _, scored := scoreAct.Score.Contribution(category); scored {
		return model.Report{}, fmt.Errorf("report for %q already scores %s", existing.Target(), category)
	}

	score := scoreAct.Score.Clone()
	if score.Deficit == nil {
		score.Deficit = map[string]int{}
	}
	if inferred {
		if score.Inferences == nil {
			score.Inferences = map[string]int{}
		}
		score.Inferences[category] = value
	} else {
		score.Deficit[category] = value
	}
	score.Deficit[model.TotalKey] += value
	scoreAct.Score = &score

	at := len(merged.Acts) - 1
	for merged.Acts[at].Type != model.ActScore {
		at--
	}
	acts := make([]model.Act, 0, len(merged.Acts)+1)
	acts = append(acts, merged.Acts[:at]...)
	acts = append(acts, act.Clone())
	acts = append(acts, merged.Acts[at:]...)
	merged.Acts = acts
	return merged, nil
}

// Result is the outcome of merging a new test into a report set.
type Result struct {
	// Merged holds the amended reports under their original names.
	Merged []ports.StoredReport
	// Mismatches lists existing reports with no new-test counterpart. They
	// are left unmodified and out of Merged.
	Mismatches []*autotesterrors.MergeMismatch
}

// MergeAll pairs every existing report with the new-test report of the same
// target and adds category to it. Reports that cannot be merged are reported
// through the joined error and left out of the result.
func MergeAll(existing, newTests []ports.StoredReport, category string, log *logger.Logger) (Result, error) {
	finder := make(map[string]ports.StoredReport, len(newTests))
	for _, stored := range newTests {
		target := stored.Report.Target()
		if _, dup := finder[target]; dup {
			log.WithFields(map[string]any{"target": target, "file": stored.Name}).Warn(nil, "duplicate new test report ignored")
			continue
		}
		finder[target] = stored
	}

	var (
		result Result
		errs   []error
	)
	for _, stored := range existing {
		target := stored.Report.Target()
		source, ok := finder[target]
		if !ok {
			mismatch := autotesterrors.NewMergeMismatch(target, stored.Name)
			log.Warn(nil, mismatch.Error())
			result.Mismatches = append(result.Mismatches, mismatch)
			continue
		}

		merged, err := AddTest(stored.Report, source.Report, category)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", stored.Name, err))
			continue
		}
		log.WithFields(map[string]any{"file": stored.Name, "category": category}).Debug("test added")
		result.Merged = append(result.Merged, ports.StoredReport{Name: stored.Name, Report: merged})
	}
	return result, errors.Join(errs...)
}
