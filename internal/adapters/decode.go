package adapters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/alexisbeaulieu97/autotest/internal/model"
)

// Decode converts engine output into a raw result of the given shape.
//
// Engines may print the shape's own JSON form, a {"shape", "data"} envelope,
// or, for violations, the native report of axe ("violations"), the IBM
// checker ("results") or WAVE ("categories").
func Decode(shape model.Shape, data []byte) (model.RawResult, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("engine output is not a JSON object: %w", err)
	}

	if rawShape, ok := probe["shape"]; ok {
		if payload, ok := probe["data"]; ok {
			var declared model.Shape
			if err := json.Unmarshal(rawShape, &declared); err != nil {
				return nil, fmt.Errorf("engine output shape: %w", err)
			}
			if shape != "" && declared != shape {
				return nil, fmt.Errorf("engine printed a %s result, expected %s", declared, shape)
			}
			return model.DecodeShape(declared, payload)
		}
	}

	if shape != model.ShapeViolations {
		return model.DecodeShape(shape, data)
	}

	switch {
	case probe["items"] != nil:
		return model.DecodeShape(shape, data)
	case probe["violations"] != nil:
		return decodeAxe(probe["violations"])
	case probe["results"] != nil:
		return decodeIBM(probe["results"])
	case probe["categories"] != nil:
		return decodeWAVE(probe)
	default:
		return nil, fmt.Errorf("engine output has no recognizable violations")
	}
}

type axeRule struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Help        string            `json:"help"`
	Impact      string            `json:"impact"`
	Nodes       []json.RawMessage `json:"nodes"`
}

func decodeAxe(data json.RawMessage) (model.RawResult, error) {
	var rules []axeRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("decode axe violations: %w", err)
	}

	out := &model.Violations{Items: make([]model.Violation, 0, len(rules))}
	for _, rule := range rules {
		description := rule.Help
		if description == "" {
			description = rule.Description
		}
		out.Items = append(out.Items, model.Violation{
			Rule:        rule.ID,
			Description: description,
			Impact:      rule.Impact,
			Count:       max(1, len(rule.Nodes)),
		})
	}
	return out, nil
}

type ibmResult struct {
	RuleID  string   `json:"ruleId"`
	Message string   `json:"message"`
	Value   []string `json:"value"`
	Level   string   `json:"level"`
}

// decodeIBM keeps violations and potential violations, one item per rule.
func decodeIBM(data json.RawMessage) (model.RawResult, error) {
	var results []ibmResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("decode IBM results: %w", err)
	}

	index := make(map[string]int)
	out := &model.Violations{}
	for _, res := range results {
		level := res.Level
		if level == "" && len(res.Value) == 2 {
			level = strings.ToLower(res.Value[1])
			if level == "fail" {
				level = "violation"
			}
		}
		if level != "violation" && level != "potentialviolation" {
			continue
		}
		if i, ok := index[res.RuleID]; ok {
			out.Items[i].Count++
			continue
		}
		index[res.RuleID] = len(out.Items)
		out.Items = append(out.Items, model.Violation{
			Rule:        res.RuleID,
			Description: res.Message,
			Impact:      level,
			Count:       1,
		})
	}
	return out, nil
}

type waveItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

type waveCategory struct {
	Count int                 `json:"count"`
	Items map[string]waveItem `json:"items"`
}

type waveStatus struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func decodeWAVE(probe map[string]json.RawMessage) (model.RawResult, error) {
	if rawStatus, ok := probe["status"]; ok {
		var status waveStatus
		if err := json.Unmarshal(rawStatus, &status); err == nil && !status.Success {
			return nil, fmt.Errorf("WAVE request failed: %s", status.Error)
		}
	}

	var categories map[string]waveCategory
	if err := json.Unmarshal(probe["categories"], &categories); err != nil {
		return nil, fmt.Errorf("decode WAVE categories: %w", err)
	}

	groups := make([]string, 0, len(categories))
	for group := range categories {
		groups = append(groups, group)
	}
	sort.Strings(groups)

	out := &model.Violations{}
	for _, group := range groups {
		items := categories[group].Items
		ids := make([]string, 0, len(items))
		for id := range items {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			item := items[id]
			rule := item.ID
			if rule == "" {
				rule = id
			}
			out.Items = append(out.Items, model.Violation{
				Rule:        rule,
				Description: item.Description,
				Group:       group,
				Count:       item.Count,
			})
		}
	}
	return out, nil
}
