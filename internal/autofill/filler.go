// Package autofill binds profile values to the inputs of an application
// form step by label, then placeholder, then name.
package autofill

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"go-easyapply-automation/internal/browser"
	"go-easyapply-automation/internal/models"
	"go-easyapply-automation/internal/rules"
	"go-easyapply-automation/internal/selector"
	"go-easyapply-automation/internal/textnorm"
)

type Tier string

const (
	TierLabel       Tier = "label"
	TierPlaceholder Tier = "placeholder"
	TierName        Tier = "name"
)

// Binding records which field went into which input.
type Binding struct {
	Field string
	Tier  Tier
	Match string
}

// Result summarises one pass. Unmatched holds question labels no profile
// field could answer; they are left for manual completion.
type Result struct {
	Bound     []Binding
	Files     int
	Unmatched []string
}

type Filler struct {
	rules      *rules.Rules
	resolver   *selector.Resolver
	resumePath string
	logger     *zap.Logger
}

func New(r *rules.Rules, resolver *selector.Resolver, resumePath string, logger *zap.Logger) *Filler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filler{rules: r, resolver: resolver, resumePath: resumePath, logger: logger}
}

type label struct {
	text  string
	raw   string
	forID string
}

type input struct {
	el          browser.Element
	key         string
	placeholder string
	name        string
}

// Fill runs one autofill pass over form. Labels are followed to their
// inputs through page, since the bound input may live outside the label's
// subtree. Binding failures are never errors; only session loss and
// cancellation are.
func (f *Filler) Fill(ctx context.Context, page, form browser.Scope, profile models.ProfileFieldMap) (Result, error) {
	var res Result
	if err := ctx.Err(); err != nil {
		return res, err
	}

	labels, err := f.labels(ctx, form, rules.RoleLabel)
	if err != nil {
		return res, err
	}
	inputs, err := f.inputs(ctx, form)
	if err != nil {
		return res, err
	}

	used := map[string]bool{}
	for _, field := range profile {
		if field.Value == "" {
			continue
		}
		b, ok, err := f.bind(ctx, page, field, labels, inputs, used)
		if err != nil {
			return res, err
		}
		if ok {
			res.Bound = append(res.Bound, b)
		}
	}

	if f.resumePath != "" {
		n, err := f.uploadResume(ctx, form)
		if err != nil {
			return res, err
		}
		res.Files = n
	}

	res.Unmatched, err = f.unanswered(ctx, form, profile)
	if err != nil {
		return res, err
	}
	for _, q := range res.Unmatched {
		f.logger.Info("❓ unanswered question", zap.String("label", q))
	}
	return res, nil
}

func (f *Filler) bind(ctx context.Context, page browser.Scope, field models.ProfileField, labels []label, inputs []input, used map[string]bool) (Binding, bool, error) {
	synonyms := make([]string, 0, len(field.Synonyms))
	for _, s := range field.Synonyms {
		if n := textnorm.Fold(s); n != "" {
			synonyms = append(synonyms, n)
		}
	}

	// tier 1: label text -> for -> input by id
	for _, syn := range synonyms {
		for _, l := range labels {
			if l.forID == "" || used["id:"+l.forID] || !contains(l.text, syn) {
				continue
			}
			m, err := f.resolver.Resolve(ctx, browser.LocatorSet{browser.CSS(fmt.Sprintf("[id=%q]", l.forID))}, page, 0)
			if err != nil {
				if errors.Is(err, selector.ErrNotFound) {
					continue
				}
				return Binding{}, false, err
			}
			ok, err := f.fill(m.First(), field)
			if err != nil {
				return Binding{}, false, err
			}
			if ok {
				used["id:"+l.forID] = true
				return Binding{Field: field.Name, Tier: TierLabel, Match: l.raw}, true, nil
			}
		}
	}

	// tiers 2 and 3: attributes of the inputs themselves
	for _, tier := range []Tier{TierPlaceholder, TierName} {
		for _, syn := range synonyms {
			for _, in := range inputs {
				attr := in.placeholder
				if tier == TierName {
					attr = in.name
				}
				if used[in.key] || !contains(attr, syn) {
					continue
				}
				ok, err := f.fill(in.el, field)
				if err != nil {
					return Binding{}, false, err
				}
				if ok {
					used[in.key] = true
					return Binding{Field: field.Name, Tier: tier, Match: attr}, true, nil
				}
			}
		}
	}

	f.logger.Debug("field not bound", zap.String("field", field.Name))
	return Binding{}, false, nil
}

func (f *Filler) fill(el browser.Element, field models.ProfileField) (bool, error) {
	if err := el.Fill(field.Value); err != nil {
		if errors.Is(err, browser.ErrSessionLost) {
			return false, err
		}
		f.logger.Debug("fill rejected", zap.String("field", field.Name), zap.Error(err))
		return false, nil
	}
	f.logger.Debug("✍️ filled field", zap.String("field", field.Name))
	return true, nil
}

func (f *Filler) uploadResume(ctx context.Context, form browser.Scope) (int, error) {
	m, err := f.resolver.Resolve(ctx, f.rules.Set(rules.RoleFileInput), form, 0)
	if err != nil {
		if errors.Is(err, selector.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, el := range m.Elements {
		if err := el.SetFiles(f.resumePath); err != nil {
			if errors.Is(err, browser.ErrSessionLost) {
				return n, err
			}
			f.logger.Warn("⚠️ resume upload failed", zap.Error(err))
			continue
		}
		n++
	}
	if n > 0 {
		f.logger.Info("📎 resume attached", zap.Int("inputs", n))
	}
	return n, nil
}

func (f *Filler) unanswered(ctx context.Context, form browser.Scope, profile models.ProfileFieldMap) ([]string, error) {
	questions, err := f.labels(ctx, form, rules.RoleQuestionLabel)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, q := range questions {
		if q.text != "" && !answers(profile, q.text) {
			out = append(out, q.raw)
		}
	}
	return out, nil
}

func answers(profile models.ProfileFieldMap, text string) bool {
	for _, field := range profile {
		for _, s := range field.Synonyms {
			if contains(text, textnorm.Fold(s)) {
				return true
			}
		}
	}
	return false
}

func (f *Filler) labels(ctx context.Context, form browser.Scope, role rules.Role) ([]label, error) {
	m, err := f.resolver.Resolve(ctx, f.rules.Set(role), form, 0)
	if err != nil {
		if errors.Is(err, selector.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]label, 0, len(m.Elements))
	for _, el := range m.Elements {
		raw, err := el.Text()
		if err != nil {
			if errors.Is(err, browser.ErrSessionLost) {
				return nil, err
			}
			continue
		}
		forID, err := el.Attribute("for")
		if err != nil && errors.Is(err, browser.ErrSessionLost) {
			return nil, err
		}
		out = append(out, label{text: textnorm.Fold(raw), raw: raw, forID: forID})
	}
	return out, nil
}

func (f *Filler) inputs(ctx context.Context, form browser.Scope) ([]input, error) {
	m, err := f.resolver.Resolve(ctx, f.rules.Set(rules.RoleTextInput), form, 0)
	if err != nil {
		if errors.Is(err, selector.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]input, 0, len(m.Elements))
	for i, el := range m.Elements {
		attrs := map[string]string{}
		for _, name := range []string{"id", "name", "placeholder"} {
			v, err := el.Attribute(name)
			if err != nil {
				if errors.Is(err, browser.ErrSessionLost) {
					return nil, err
				}
				continue
			}
			attrs[name] = v
		}
		key := fmt.Sprintf("idx:%d", i)
		switch {
		case attrs["id"] != "":
			key = "id:" + attrs["id"]
		case attrs["name"] != "":
			key = "name:" + attrs["name"]
		}
		out = append(out, input{
			el:          el,
			key:         key,
			placeholder: textnorm.Fold(attrs["placeholder"]),
			name:        textnorm.Fold(attrs["name"]),
		})
	}
	return out, nil
}

func contains(haystack, needle string) bool {
	return needle != "" && haystack != "" && strings.Contains(haystack, needle)
}
