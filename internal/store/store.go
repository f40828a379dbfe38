// internal/store/store.go

// Package store persists rule sets and reloads them as validated graph
// snapshots.
//
// Rows carry predicates, formulas, and position sets as JSON text;
// decoding happens here so the db package stays schema-agnostic and the
// rulegraph package never sees SQL. Loading always runs the full graph
// validation: a rule set that cannot pass Load never reaches the engine,
// no matter what is in the database.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jbandu/crew-pay/internal/core/db"
	"github.com/jbandu/crew-pay/internal/rulegraph"
	"github.com/jbandu/crew-pay/internal/types"
)

// RuleSet is the full editable content of the store, the input to Save
// and the decoded output of Load before graph validation.
type RuleSet struct {
	Rules      []types.Rule
	Terms      []types.ContractTerm
	Scenarios  []types.Scenario
	Components []types.PayComponent
	Edges      rulegraph.Edges
}

type ruleNodeRow struct {
	Code           string         `db:"code"`
	NodeType       string         `db:"node_type"`
	Category       string         `db:"category"`
	Priority       int            `db:"priority"`
	EffectiveDate  string         `db:"effective_date"`
	ExpirationDate sql.NullString `db:"expiration_date"`
	AppliesTo      string         `db:"applies_to"`
	Condition      string         `db:"condition"`
	LimitValue     sql.NullString `db:"limit_value"`
	Formula        sql.NullString `db:"formula"`
}

type scenarioRow struct {
	ID         string `db:"id"`
	Complexity string `db:"complexity"`
	Predicate  string `db:"predicate"`
}

type componentRow struct {
	Kind     string `db:"kind"`
	Priority int    `db:"priority"`
}

type edgeRow struct {
	EdgeType string `db:"edge_type"`
	Source   string `db:"source"`
	Target   string `db:"target"`
	Attrs    string `db:"attrs"`
}

// Edge attrs JSON payloads, one shape per edge type. Source and target
// columns carry the endpoints; attrs carry everything else.
type appliesToAttrs struct {
	Priority   int             `json:"priority,omitempty"`
	Conditions types.Predicate `json:"conditions,omitempty"`
	Exceptions types.Predicate `json:"exceptions,omitempty"`
}

type requiresAttrs struct {
	Mandatory  bool            `json:"mandatory"`
	Conditions types.Predicate `json:"conditions,omitempty"`
}

type dependsOnAttrs struct {
	DepType string `json:"dep_type,omitempty"`
}

type conflictAttrs struct {
	Resolution string `json:"resolution"`
}

type modifiesAttrs struct {
	Conditions types.Predicate `json:"conditions,omitempty"`
}

// Load reads the stored rule set and assembles the validated graph.
func Load(q *db.Queries) (*rulegraph.Graph, error) {
	rs, err := LoadRuleSet(q)
	if err != nil {
		return nil, err
	}
	return rulegraph.Load(rs.Rules, rs.Terms, rs.Scenarios, rs.Components, rs.Edges)
}

// LoadRuleSet reads and decodes the stored rule set without validating it,
// for administration tooling that needs to inspect a broken set.
func LoadRuleSet(q *db.Queries) (*RuleSet, error) {
	rs := &RuleSet{}

	var nodeRows []ruleNodeRow
	if err := q.Select("list-rule-nodes", &nodeRows); err != nil {
		return nil, fmt.Errorf("loading rule nodes: %w", err)
	}
	for _, row := range nodeRows {
		rule, formula, err := decodeRuleNode(row)
		if err != nil {
			return nil, err
		}
		if row.NodeType == "term" {
			rs.Terms = append(rs.Terms, types.ContractTerm{Rule: rule, Formula: formula})
		} else {
			rs.Rules = append(rs.Rules, rule)
		}
	}

	var scenarioRows []scenarioRow
	if err := q.Select("list-scenarios", &scenarioRows); err != nil {
		return nil, fmt.Errorf("loading scenarios: %w", err)
	}
	for _, row := range scenarioRows {
		var pred types.Predicate
		if err := json.Unmarshal([]byte(row.Predicate), &pred); err != nil {
			return nil, fmt.Errorf("scenario %s predicate: %w", row.ID, err)
		}
		rs.Scenarios = append(rs.Scenarios, types.Scenario{
			ID:         types.ScenarioID(row.ID),
			Complexity: row.Complexity,
			Predicate:  pred,
		})
	}

	var componentRows []componentRow
	if err := q.Select("list-pay-components", &componentRows); err != nil {
		return nil, fmt.Errorf("loading pay components: %w", err)
	}
	for _, row := range componentRows {
		rs.Components = append(rs.Components, types.PayComponent{
			Kind:     types.ComponentKind(row.Kind),
			Priority: row.Priority,
		})
	}

	var edgeRows []edgeRow
	if err := q.Select("list-graph-edges", &edgeRows); err != nil {
		return nil, fmt.Errorf("loading graph edges: %w", err)
	}
	for _, row := range edgeRows {
		if err := decodeEdge(row, &rs.Edges); err != nil {
			return nil, err
		}
	}

	return rs, nil
}

// Save writes a rule set, replacing whatever the store held before.
// Writes go through the shared connection's transaction-free named
// queries; rule-set administration is single-writer by convention.
func Save(q *db.Queries, rs *RuleSet) error {
	for _, name := range []string{"delete-rule-set", "delete-rule-nodes", "delete-scenarios", "delete-pay-components"} {
		if _, err := q.Exec(name); err != nil {
			return fmt.Errorf("clearing store (%s): %w", name, err)
		}
	}

	for i := range rs.Rules {
		if err := insertRuleNode(q, &rs.Rules[i], "rule", nil); err != nil {
			return err
		}
	}
	for i := range rs.Terms {
		if err := insertRuleNode(q, &rs.Terms[i].Rule, "term", rs.Terms[i].Formula); err != nil {
			return err
		}
	}
	for _, s := range rs.Scenarios {
		pred, err := json.Marshal(s.Predicate)
		if err != nil {
			return fmt.Errorf("scenario %s predicate: %w", s.ID, err)
		}
		if _, err := q.Exec("insert-scenario", string(s.ID), s.Complexity, string(pred)); err != nil {
			return fmt.Errorf("inserting scenario %s: %w", s.ID, err)
		}
	}
	for _, c := range rs.Components {
		if _, err := q.Exec("insert-pay-component", string(c.Kind), c.Priority); err != nil {
			return fmt.Errorf("inserting pay component %s: %w", c.Kind, err)
		}
	}

	return saveEdges(q, rs.Edges)
}

func decodeRuleNode(row ruleNodeRow) (types.Rule, types.Formula, error) {
	rule := types.Rule{
		Code:     types.RuleCode(row.Code),
		Category: row.Category,
		Priority: row.Priority,
	}

	effective, err := time.Parse(time.RFC3339, row.EffectiveDate)
	if err != nil {
		return rule, nil, fmt.Errorf("rule %s effective_date: %w", row.Code, err)
	}
	rule.EffectiveDate = effective

	if row.ExpirationDate.Valid && row.ExpirationDate.String != "" {
		expiration, err := time.Parse(time.RFC3339, row.ExpirationDate.String)
		if err != nil {
			return rule, nil, fmt.Errorf("rule %s expiration_date: %w", row.Code, err)
		}
		rule.ExpirationDate = expiration
	}

	if err := json.Unmarshal([]byte(row.AppliesTo), &rule.AppliesTo); err != nil {
		return rule, nil, fmt.Errorf("rule %s applies_to: %w", row.Code, err)
	}
	if err := json.Unmarshal([]byte(row.Condition), &rule.Condition); err != nil {
		return rule, nil, fmt.Errorf("rule %s condition: %w", row.Code, err)
	}

	if row.LimitValue.Valid && row.LimitValue.String != "" {
		limit, err := decimal.NewFromString(row.LimitValue.String)
		if err != nil {
			return rule, nil, fmt.Errorf("rule %s limit: %w", row.Code, err)
		}
		rule.Limit = &limit
	}

	var formula types.Formula
	if row.NodeType == "term" {
		if !row.Formula.Valid {
			return rule, nil, fmt.Errorf("term %s has no formula", row.Code)
		}
		formula, err = types.UnmarshalFormula([]byte(row.Formula.String))
		if err != nil {
			return rule, nil, fmt.Errorf("term %s formula: %w", row.Code, err)
		}
	}

	return rule, formula, nil
}

func insertRuleNode(q *db.Queries, r *types.Rule, nodeType string, formula types.Formula) error {
	appliesTo, err := json.Marshal(r.AppliesTo)
	if err != nil {
		return fmt.Errorf("rule %s applies_to: %w", r.Code, err)
	}
	condition, err := json.Marshal(r.Condition)
	if err != nil {
		return fmt.Errorf("rule %s condition: %w", r.Code, err)
	}

	var expiration any
	if !r.ExpirationDate.IsZero() {
		expiration = r.ExpirationDate.UTC().Format(time.RFC3339)
	}
	var limit any
	if r.Limit != nil {
		limit = r.Limit.String()
	}
	var formulaJSON any
	if formula != nil {
		data, err := types.MarshalFormula(formula)
		if err != nil {
			return fmt.Errorf("term %s formula: %w", r.Code, err)
		}
		formulaJSON = string(data)
	}

	_, err = q.Exec("insert-rule-node",
		string(r.Code), nodeType, r.Category, r.Priority,
		r.EffectiveDate.UTC().Format(time.RFC3339), expiration,
		string(appliesTo), string(condition), limit, formulaJSON)
	if err != nil {
		return fmt.Errorf("inserting rule node %s: %w", r.Code, err)
	}
	return nil
}

func decodeEdge(row edgeRow, edges *rulegraph.Edges) error {
	switch row.EdgeType {
	case "applies_to":
		var attrs appliesToAttrs
		if err := json.Unmarshal([]byte(row.Attrs), &attrs); err != nil {
			return fmt.Errorf("applies_to edge %s->%s: %w", row.Source, row.Target, err)
		}
		edges.AppliesTo = append(edges.AppliesTo, rulegraph.AppliesTo{
			RuleCode:   types.RuleCode(row.Source),
			ScenarioID: types.ScenarioID(row.Target),
			Priority:   attrs.Priority,
			Conditions: attrs.Conditions,
			Exceptions: attrs.Exceptions,
		})
	case "requires":
		var attrs requiresAttrs
		if err := json.Unmarshal([]byte(row.Attrs), &attrs); err != nil {
			return fmt.Errorf("requires edge %s->%s: %w", row.Source, row.Target, err)
		}
		edges.Requires = append(edges.Requires, rulegraph.Requires{
			ScenarioID: types.ScenarioID(row.Source),
			Kind:       types.ComponentKind(row.Target),
			Mandatory:  attrs.Mandatory,
			Conditions: attrs.Conditions,
		})
	case "depends_on":
		var attrs dependsOnAttrs
		if err := json.Unmarshal([]byte(row.Attrs), &attrs); err != nil {
			return fmt.Errorf("depends_on edge %s->%s: %w", row.Source, row.Target, err)
		}
		edges.DependsOn = append(edges.DependsOn, rulegraph.DependsOn{
			Kind:    types.ComponentKind(row.Source),
			On:      types.ComponentKind(row.Target),
			DepType: rulegraph.DependencyType(attrs.DepType),
		})
	case "conflicts_with":
		var attrs conflictAttrs
		if err := json.Unmarshal([]byte(row.Attrs), &attrs); err != nil {
			return fmt.Errorf("conflicts_with edge %s->%s: %w", row.Source, row.Target, err)
		}
		edges.Conflicts = append(edges.Conflicts, rulegraph.ConflictsWith{
			A:          types.RuleCode(row.Source),
			B:          types.RuleCode(row.Target),
			Resolution: rulegraph.ResolutionMethod(attrs.Resolution),
		})
	case "supersedes":
		edges.Supersedes = append(edges.Supersedes, rulegraph.Supersedes{
			New: types.RuleCode(row.Source),
			Old: types.RuleCode(row.Target),
		})
	case "modifies":
		var attrs modifiesAttrs
		if err := json.Unmarshal([]byte(row.Attrs), &attrs); err != nil {
			return fmt.Errorf("modifies edge %s->%s: %w", row.Source, row.Target, err)
		}
		edges.Modifies = append(edges.Modifies, rulegraph.Modifies{
			Modifier:   types.RuleCode(row.Source),
			Target:     types.RuleCode(row.Target),
			Conditions: attrs.Conditions,
		})
	default:
		return fmt.Errorf("unknown edge type %q", row.EdgeType)
	}
	return nil
}

func saveEdges(q *db.Queries, edges rulegraph.Edges) error {
	insert := func(edgeType, source, target string, attrs any) error {
		data, err := json.Marshal(attrs)
		if err != nil {
			return fmt.Errorf("%s edge %s->%s: %w", edgeType, source, target, err)
		}
		if _, err := q.Exec("insert-graph-edge", edgeType, source, target, string(data)); err != nil {
			return fmt.Errorf("inserting %s edge %s->%s: %w", edgeType, source, target, err)
		}
		return nil
	}

	for _, e := range edges.AppliesTo {
		attrs := appliesToAttrs{Priority: e.Priority, Conditions: e.Conditions, Exceptions: e.Exceptions}
		if err := insert("applies_to", string(e.RuleCode), string(e.ScenarioID), attrs); err != nil {
			return err
		}
	}
	for _, e := range edges.Requires {
		attrs := requiresAttrs{Mandatory: e.Mandatory, Conditions: e.Conditions}
		if err := insert("requires", string(e.ScenarioID), string(e.Kind), attrs); err != nil {
			return err
		}
	}
	for _, e := range edges.DependsOn {
		attrs := dependsOnAttrs{DepType: string(e.DepType)}
		if err := insert("depends_on", string(e.Kind), string(e.On), attrs); err != nil {
			return err
		}
	}
	for _, e := range edges.Conflicts {
		attrs := conflictAttrs{Resolution: string(e.Resolution)}
		if err := insert("conflicts_with", string(e.A), string(e.B), attrs); err != nil {
			return err
		}
	}
	for _, e := range edges.Supersedes {
		if err := insert("supersedes", string(e.New), string(e.Old), struct{}{}); err != nil {
			return err
		}
	}
	for _, e := range edges.Modifies {
		attrs := modifiesAttrs{Conditions: e.Conditions}
		if err := insert("modifies", string(e.Modifier), string(e.Target), attrs); err != nil {
			return err
		}
	}
	return nil
}
