// Package rules holds the tunable DOM knowledge of the engine: the ordered
// locator sets for every UI role and the keyword tables used by the
// listing heuristics. Defaults are embedded; a YAML file may override
// any role or table without a rebuild.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"go-easyapply-automation/internal/browser"
)

type Role string

const (
	RoleJobCard          Role = "job_card"
	RoleJobList          Role = "job_list"
	RoleDetailPane       Role = "detail_pane"
	RoleDescriptionPanel Role = "description_panel"
	RoleMainContent      Role = "main_content"
	RoleApplyButton      Role = "apply_button"
	RoleModal            Role = "modal"
	RoleModalOverlay     Role = "modal_overlay"
	RoleLabel            Role = "label"
	RoleTextInput        Role = "text_input"
	RoleFileInput        Role = "file_input"
	RoleQuestionLabel    Role = "question_label"
	RoleNextPage         Role = "next_page"
	RoleLoginMarker      Role = "login_marker"
)

var requiredRoles = []Role{
	RoleJobCard, RoleDetailPane, RoleDescriptionPanel, RoleMainContent,
	RoleApplyButton, RoleModal, RoleLabel, RoleTextInput, RoleFileInput,
}

//go:embed defaults.yaml
var defaultsYAML []byte

type ExtractRules struct {
	HeadingSelector  string   `yaml:"heading_selector"`
	LinkSelector     string   `yaml:"link_selector"`
	Boilerplate      []string `yaml:"boilerplate"`
	CompanySuffixes  []string `yaml:"company_suffixes"`
	LocationKeywords []string `yaml:"location_keywords"`
	LocationWords    []string `yaml:"location_words"`
}

type Rules struct {
	Locators       map[Role]browser.LocatorSet `yaml:"locators"`
	PrimaryActions []string                    `yaml:"primary_actions"`
	CloseLabels    []string                    `yaml:"close_labels"`
	Extract        ExtractRules                `yaml:"extract"`
}

// Default returns the embedded rule tables.
func Default() *Rules {
	r, err := parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("rules: embedded defaults are invalid: %v", err))
	}
	return r
}

// Load returns the defaults overlaid with the file at path. An empty path
// yields the defaults. Roles and tables present in the file replace the
// default ones wholesale.
func Load(path string) (*Rules, error) {
	base := Default()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var override Rules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	base.merge(&override)
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return base, nil
}

func parse(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Rules) merge(o *Rules) {
	if r.Locators == nil {
		r.Locators = map[Role]browser.LocatorSet{}
	}
	for role, set := range o.Locators {
		if len(set) > 0 {
			r.Locators[role] = set
		}
	}
	replace(&r.PrimaryActions, o.PrimaryActions)
	replace(&r.CloseLabels, o.CloseLabels)
	if o.Extract.HeadingSelector != "" {
		r.Extract.HeadingSelector = o.Extract.HeadingSelector
	}
	if o.Extract.LinkSelector != "" {
		r.Extract.LinkSelector = o.Extract.LinkSelector
	}
	replace(&r.Extract.Boilerplate, o.Extract.Boilerplate)
	replace(&r.Extract.CompanySuffixes, o.Extract.CompanySuffixes)
	replace(&r.Extract.LocationKeywords, o.Extract.LocationKeywords)
	replace(&r.Extract.LocationWords, o.Extract.LocationWords)
}

func replace(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}

func (r *Rules) Validate() error {
	for _, role := range requiredRoles {
		set := r.Locators[role]
		if len(set) == 0 {
			return fmt.Errorf("role %q has no locators", role)
		}
		for i, loc := range set {
			if strings.TrimSpace(loc.Pattern) == "" {
				return fmt.Errorf("role %q locator %d has an empty pattern", role, i)
			}
			switch loc.Strategy {
			case "", browser.StrategyCSS, browser.StrategyXPath, browser.StrategyText:
			default:
				return fmt.Errorf("role %q locator %d: unknown strategy %q", role, i, loc.Strategy)
			}
		}
	}
	if len(r.PrimaryActions) == 0 {
		return fmt.Errorf("primary_actions is empty")
	}
	return nil
}

// Set returns the locator set for role; unknown roles yield an empty set.
func (r *Rules) Set(role Role) browser.LocatorSet {
	return r.Locators[role]
}

// PrimaryAction is the priority-ordered set for the control that advances
// the application modal.
func (r *Rules) PrimaryAction() browser.LocatorSet {
	return LabelButtons(r.PrimaryActions)
}

// ModalClose is the priority-ordered set of dismiss controls.
func (r *Rules) ModalClose() browser.LocatorSet {
	return LabelButtons(r.CloseLabels)
}

const (
	upper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lower = "abcdefghijklmnopqrstuvwxyz"
)

// LabelButton matches an enabled button whose text or aria-label contains
// label, case-insensitively.
func LabelButton(label string) browser.Locator {
	l := strings.ToLower(strings.ReplaceAll(label, "'", ""))
	return browser.XPath(fmt.Sprintf(
		"//button[not(@disabled) and (contains(translate(normalize-space(.), '%s', '%s'), '%s') or contains(translate(@aria-label, '%s', '%s'), '%s'))]",
		upper, lower, l, upper, lower, l))
}

func LabelButtons(labels []string) browser.LocatorSet {
	set := make(browser.LocatorSet, 0, len(labels))
	for _, l := range labels {
		set = append(set, LabelButton(l))
	}
	return set
}
