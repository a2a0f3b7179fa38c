package configbridge

import "github.com/monctl/monctl/internal/domain"

func createUpdate() domain.Value {
	return domain.Map().Set("createMissing", domain.Bool(true)).Set("updateExisting", domain.Bool(true))
}

func createUpdateDelete() domain.Value {
	return createUpdate().Set("deleteMissing", domain.Bool(true))
}

func createOnly() domain.Value {
	return domain.Map().Set("createMissing", domain.Bool(true))
}

// DefaultImportRules builds the configuration.import "rules" document for
// the target release: a fixed base (spec.md §4.5), with the handful of
// release-gated renames and removals original_source/zc.py applies while
// building self.importRules — templateScreens renamed to
// templateDashboards at 5.2, groups forked into host_groups/template_groups
// at 6.2, applications/screens dropped at 5.4.
func DefaultImportRules(major float64) domain.Value {
	rules := domain.Map().
		Set("hosts", createUpdate()).
		Set("templateLinkage", createUpdateDelete()).
		Set("templates", createUpdate()).
		Set("items", createUpdateDelete()).
		Set("discoveryRules", createUpdateDelete()).
		Set("triggers", createUpdateDelete()).
		Set("valueMaps", createUpdate()).
		Set("images", domain.Map()).
		Set("maps", domain.Map()).
		Set("graphs", domain.Map()).
		Set("httptests", domain.Map())

	if major < 5.4 {
		rules = rules.
			Set("applications", createUpdateDelete()).
			Set("screens", domain.Map())
	}

	if major >= 4.4 {
		rules = rules.Set("mediaTypes", createUpdate())
	}

	if major >= 5.2 {
		rules = rules.Set("templateDashboards", domain.Map())
	} else {
		rules = rules.Set("templateScreens", domain.Map())
	}

	if major >= 6.2 {
		rules = rules.
			Set("host_groups", createOnly()).
			Set("template_groups", createOnly())
	} else {
		rules = rules.Set("groups", createOnly())
	}

	return rules
}
