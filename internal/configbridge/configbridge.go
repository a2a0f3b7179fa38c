// Package configbridge drives the Monitor's own configuration export and
// import RPCs for the handful of entity kinds cheaper to move as one
// opaque bundle than to normalize record-by-record: host groups, template
// groups, media types, value maps, and templates (spec.md §4.5).
package configbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/monitorapi"
	"github.com/monctl/monctl/internal/presenter"
)

// Bridge ties a Monitor Client to the release the local node runs, so
// every export/import call gets the right section names, import rules,
// and bundle fix-ups for that release.
type Bridge struct {
	Client         monitorapi.Client
	Major          float64
	ExportBatch    int // templates per configuration.export call
	Presenter      presenter.Presenter
}

// NewBridge constructs a Bridge. exportBatch <= 0 falls back to 50.
func NewBridge(client monitorapi.Client, major float64, exportBatch int, pres presenter.Presenter) *Bridge {
	if exportBatch <= 0 {
		exportBatch = 50
	}
	return &Bridge{Client: client, Major: major, ExportBatch: exportBatch, Presenter: pres}
}

// groupsSection and templateGroupsSection name the export/import section
// monctl uses for host/template groups, which forked into two distinct
// Monitor entities at release 6.2 (spec.md §4.5).
func (b *Bridge) groupsSection() string {
	if b.Major >= 6.2 {
		return "host_groups"
	}
	return "groups"
}

func (b *Bridge) templateGroupsSection() string {
	if b.Major >= 6.2 {
		return "template_groups"
	}
	return ""
}

// Export pulls every non-template bundle (groups, media types, value
// maps) in one configuration.export call, plus the named templates in
// ExportBatch-sized chunks, and returns the decoded zabbix_export bodies:
// bundle holds everything but templates, templates holds the flattened,
// still release-shaped template objects ready for ApplyTemplateFixups and
// ordering.
func (b *Bridge) Export(ctx context.Context, groupIDs, mediaTypeIDs, valueMapIDs, templateIDs []string) (bundle domain.Value, templates []domain.Value, err error) {
	options := domain.Map()
	if len(groupIDs) > 0 {
		options = options.Set(b.groupsSection(), idList(groupIDs))
	}
	if tg := b.templateGroupsSection(); tg != "" && len(groupIDs) > 0 {
		options = options.Set(tg, idList(groupIDs))
	}
	if len(mediaTypeIDs) > 0 {
		options = options.Set("mediaTypes", idList(mediaTypeIDs))
	}
	if len(valueMapIDs) > 0 && b.Major < 6.0 {
		options = options.Set("valueMaps", idList(valueMapIDs))
	}

	raw, err := b.Client.ConfigurationExport(ctx, domain.Map().
		Set("format", domain.String("json")).
		Set("options", options))
	if err != nil {
		return domain.Null(), nil, &ErrBundleImportFailed{Section: "export:bundle", Cause: err}
	}
	bundle, err = decodeExport(raw)
	if err != nil {
		return domain.Null(), nil, &ErrBundleImportFailed{Section: "export:bundle", Cause: err}
	}

	for _, chunk := range Chunk(templateIDs, b.ExportBatch) {
		raw, err := b.Client.ConfigurationExport(ctx, domain.Map().
			Set("format", domain.String("json")).
			Set("options", domain.Map().Set("templates", idList(chunk))))
		if err != nil {
			return domain.Null(), nil, &ErrBundleImportFailed{Section: "export:templates", Cause: err}
		}
		decoded, err := decodeExport(raw)
		if err != nil {
			return domain.Null(), nil, &ErrBundleImportFailed{Section: "export:templates", Cause: err}
		}
		if tmpls, ok := decoded.Get("templates"); ok {
			list, _ := tmpls.List()
			templates = append(templates, list...)
		}
	}
	return bundle, templates, nil
}

func idList(ids []string) domain.Value {
	items := make([]domain.Value, len(ids))
	for i, id := range ids {
		items[i] = domain.String(id)
	}
	return domain.List(items...)
}

// decodeExport un-nests configuration.export's result: Monitor returns the
// exported document JSON-encoded a second time, as a plain string, under a
// "zabbix_export" key — grounded on original_source/zc.py's
// `json.loads(data.replace('media_types', 'mediaTypes')).get('zabbix_export')`,
// including its media_types->mediaTypes spelling fixup.
func decodeExport(raw domain.Value) (domain.Value, error) {
	text, ok := raw.String()
	if !ok {
		// Already decoded (e.g. a test fake returning the object
		// directly); unwrap zabbix_export if present, else pass through.
		if body, ok := raw.Get("zabbix_export"); ok {
			return body, nil
		}
		return raw, nil
	}
	text = strings.ReplaceAll(text, "media_types", "mediaTypes")
	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return domain.Null(), fmt.Errorf("configbridge: decoding export body: %w", err)
	}
	value := domain.FromAny(decoded)
	body, ok := value.Get("zabbix_export")
	if !ok {
		return domain.Null(), fmt.Errorf("configbridge: export body missing zabbix_export")
	}
	return body, nil
}

// ImportNonTemplateBundle imports everything but templates in a single
// call; any failure here is fatal for the run, since nothing downstream
// (templates, hosts) can safely proceed without groups and media types in
// place (spec.md §4.5, §7 bucket 2).
func (b *Bridge) ImportNonTemplateBundle(ctx context.Context, sections domain.Value, version string) error {
	if sections.IsEmptyOrZero() {
		return nil
	}
	sections = b.applyMediaTypeFixupsToBundle(sections)
	sections = sections.Set("version", domain.String(version))
	if b.Major < 7.0 {
		sections = sections.Set("date", domain.String(zabbixTimestamp()))
	}
	if b.Presenter != nil {
		b.Presenter.Step("importing host groups, media types, value maps")
	}
	source, err := encodeImportSource(sections)
	if err != nil {
		return &ErrBundleImportFailed{Section: "non-template", Cause: err}
	}
	if err := b.Client.ConfigurationImport(ctx, domain.Map().
		Set("format", domain.String("json")).
		Set("rules", DefaultImportRules(b.Major)).
		Set("source", source)); err != nil {
		return &ErrBundleImportFailed{Section: "non-template", Cause: err}
	}
	return nil
}

// encodeImportSource re-wraps an import body into the JSON-string shape
// configuration.import's "source" parameter expects, the mirror image of
// decodeExport (original_source/zc.py:
// `'{"zabbix_export":%s}' % json.dumps(importItems, ensure_ascii=False)`).
func encodeImportSource(body domain.Value) (domain.Value, error) {
	encoded, err := json.Marshal(domain.Map().Set("zabbix_export", body).ToAny())
	if err != nil {
		return domain.Null(), fmt.Errorf("configbridge: encoding import source: %w", err)
	}
	return domain.String(string(encoded)), nil
}

func (b *Bridge) applyMediaTypeFixupsToBundle(sections domain.Value) domain.Value {
	mts, ok := sections.Get("mediaTypes")
	if !ok {
		return sections
	}
	list, _ := mts.List()
	out := make([]domain.Value, len(list))
	for i, mt := range list {
		out[i] = ApplyMediaTypeFixups(b.Major, mt)
	}
	return sections.Set("mediaTypes", domain.List(out...))
}

// ImportTemplates imports every template one at a time, in the
// dependency-safe order OrderGroups computes, so one rejected template
// (a trigger expression Monitor no longer accepts, say) costs that
// template alone rather than the whole batch (spec.md §4.5: "one bad
// template must not abort the rest").
func (b *Bridge) ImportTemplates(ctx context.Context, templates []domain.Value, version string) (failed []*ErrTemplateImportFailed) {
	byName := make(map[string]domain.Value, len(templates))
	var graph []Template
	for _, t := range templates {
		name := stringField(t, "name")
		byName[name] = t
		graph = append(graph, Template{
			Name:                   name,
			LinkedTemplates:        nameRefs(t, "templates"),
			HostPrototypeTemplates: hostPrototypeTemplateRefs(t),
		})
	}

	for _, group := range OrderGroups(graph) {
		for _, name := range group {
			template := ApplyTemplateFixups(b.Major, byName[name])
			if b.Presenter != nil {
				b.Presenter.Step(fmt.Sprintf("importing template %q", name))
			}
			source := domain.Map().
				Set("templates", domain.List(template)).
				Set("version", domain.String(version))
			if b.Major < 7.0 {
				source = source.Set("date", domain.String(zabbixTimestamp()))
			}
			encoded, err := encodeImportSource(source)
			if err == nil {
				err = b.Client.ConfigurationImport(ctx, domain.Map().
					Set("format", domain.String("json")).
					Set("rules", DefaultImportRules(b.Major)).
					Set("source", encoded))
			}
			if err != nil {
				fail := &ErrTemplateImportFailed{Template: name, Cause: err}
				failed = append(failed, fail)
				if b.Presenter != nil {
					b.Presenter.RecordFailure("template", name, err)
				}
			}
		}
	}
	return failed
}

func stringField(v domain.Value, key string) string {
	child, ok := v.Get(key)
	if !ok {
		return ""
	}
	s, _ := child.String()
	return s
}

func nameRefs(v domain.Value, key string) []string {
	child, ok := v.Get(key)
	if !ok {
		return nil
	}
	list, _ := child.List()
	out := make([]string, 0, len(list))
	for _, item := range list {
		if n := stringField(item, "name"); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// hostPrototypeTemplateRefs collects the names of templates every LLD
// rule's host prototypes link to — a dependency just as binding as a
// direct template link (spec.md §4.5).
func hostPrototypeTemplateRefs(template domain.Value) []string {
	rules, ok := template.Get("discovery_rules")
	if !ok {
		return nil
	}
	ruleList, _ := rules.List()
	var out []string
	for _, rule := range ruleList {
		protos, ok := rule.Get("host_prototypes")
		if !ok {
			continue
		}
		protoList, _ := protos.List()
		for _, proto := range protoList {
			out = append(out, nameRefs(proto, "templates")...)
		}
	}
	return out
}

// zabbixTimestamp formats the export "date" field the way Monitor itself
// does. A variable so tests can freeze it, the same pattern domain.NowUnix
// uses.
var zabbixTimestamp = func() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}
