package configbridge

import (
	"strconv"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/normalize"
)

// ApplyTemplateFixups strips request_method from every item, LLD rule, and
// item prototype whose type isn't HTTP_AGENT, at >=6.4 — the one
// release-gated rewrite a template bundle needs before import (spec.md
// §4.5), grounded on original_source/zc.py's CONFIG_IMPORT template
// branch.
func ApplyTemplateFixups(major float64, template domain.Value) domain.Value {
	if major < 6.4 {
		return template
	}
	if items, ok := template.Get("items"); ok {
		template = template.Set("items", stripRequestMethod(items))
	}
	if rules, ok := template.Get("discovery_rules"); ok {
		list, _ := rules.List()
		out := make([]domain.Value, len(list))
		for i, rule := range list {
			if normalize.StringField(rule, "type") != "HTTP_AGENT" {
				rule = rule.Delete("request_method")
			}
			if protos, ok := rule.Get("item_prototypes"); ok {
				rule = rule.Set("item_prototypes", stripRequestMethod(protos))
			}
			out[i] = rule
		}
		template = template.Set("discovery_rules", domain.List(out...))
	}
	return template
}

func stripRequestMethod(items domain.Value) domain.Value {
	list, ok := items.List()
	if !ok {
		return items
	}
	out := make([]domain.Value, len(list))
	for i, item := range list {
		if normalize.StringField(item, "type") != "HTTP_AGENT" {
			item = item.Delete("request_method")
		}
		out[i] = item
	}
	return domain.List(out...)
}

// ApplyMediaTypeFixups rewrites one media type entity for the target
// release: drops content_type for SCRIPT types at >=6.0, migrates SCRIPT
// parameters from a bare string list to ordered {sortorder, value}
// objects at >=6.4, drops content_type unconditionally at >=7.0, and
// blanks username on authenticated email media types that are missing one
// rather than letting the import fail outright (spec.md §4.5).
func ApplyMediaTypeFixups(major float64, mt domain.Value) domain.Value {
	isScript := normalize.StringField(mt, "type") == "SCRIPT"
	if major >= 6.0 && isScript {
		mt = mt.Delete("content_type")
	}
	if major >= 6.4 && isScript {
		if params, ok := mt.Get("parameters"); ok {
			list, _ := params.List()
			out := make([]domain.Value, 0, len(list))
			for idx, p := range list {
				if s, isStr := p.String(); isStr {
					out = append(out, domain.Map().
						Set("sortorder", domain.String(strconv.Itoa(idx))).
						Set("value", domain.String(s)))
					continue
				}
				sortOrder, hasSort := p.Get("sortorder")
				val, hasVal := p.Get("value")
				if hasSort && hasVal && !sortOrder.IsEmptyOrZero() {
					out = append(out, p)
				} else if hasVal {
					out = append(out, domain.Map().
						Set("sortorder", domain.String(strconv.Itoa(idx))).
						Set("value", val))
				}
			}
			mt = mt.Set("parameters", domain.List(out...))
		}
	}
	if major >= 7.0 {
		mt = mt.Delete("content_type")
	}
	if normalize.StringField(mt, "type") == "EMAIL" && normalize.IntField(mt, "smtp_authentication") != 0 {
		if normalize.StringField(mt, "username") == "" {
			mt = mt.Set("username", domain.String(""))
		}
	}
	return mt
}
