package normalize

import (
	"context"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindAction, actionProcessor{})
}

// Event source values, as the API encodes them.
const (
	eventSourceTrigger      = 0
	eventSourceDiscovery    = 1
	eventSourceAutoreg      = 2
	eventSourceInternal     = 3
	eventSourceService      = 4
)

var discardOperateFields = []string{"esc_period", "esc_step_from", "esc_step_to"}
var discardNotTriggerFields = []string{"pause_symptoms", "pause_suppressed", "notify_if_canceled"}

// operationBuckets lists the three key names an action's operations can
// appear under, oldest first; releases since 6.0 renamed the
// acknowledge bucket to update.
var operationBuckets = []string{"operations", "recoveryOperations", "acknowledgeOperations"}

type actionProcessor struct{}

func (actionProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformActions(nctx, records, true)
}

func (actionProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformActions(nctx, records, false)
}

func transformActions(nctx *Context, records []domain.Record, isMaster bool) ([]domain.Record, []domain.Record, error) {
	kind := domain.KindAction
	records = runCommonPass(nctx, kind, records)

	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		data := r.Payload

		if IntField(data, "status") == 1 {
			// disabled action, not worth carrying across
			continue
		}

		renamed := map[string]string{}
		for _, bucket := range operationBuckets {
			target := bucket
			if bucket != "operations" {
				rename := bucket
				if nctx.major() >= 6.0 {
					rename = renameAcknowledgeToUpdate(bucket)
				}
				renamed[bucket] = rename
				target = rename
			}
			if child, ok := data.Get(bucket); ok && bucket != target {
				data = data.Set(target, child).Delete(bucket)
			}
		}

		eventSource := IntField(data, "eventsource")
		if eventSource != eventSourceTrigger {
			data = StripFields(data, discardNotTriggerFields)
		}
		if eventSource == eventSourceDiscovery || eventSource == eventSourceAutoreg || eventSource == eventSourceInternal {
			data = StripFields(data, []string{"update_operations", "updateOperations", "acknowledge_operations", "acknowledgeOperations"})
		}
		if eventSource == eventSourceDiscovery || eventSource == eventSourceAutoreg {
			data = StripFields(data, []string{"recovery_operations", "recoveryOperations", "esc_period"})
		}

		if filter, ok := data.Get("filter"); ok {
			filter = filter.Delete("eval_formula")
			if IntField(filter, "evaltype") < 3 {
				filter = filter.Delete("formula")
			}
			filter = translateConditions(nctx, filter, isMaster)
			data = data.Set("filter", filter)
		}

		for _, bucket := range operationBuckets {
			target := bucket
			if r, ok := renamed[bucket]; ok {
				target = r
			}
			ops, ok := data.Get(target)
			if !ok {
				continue
			}
			ops = normalizeOperations(nctx, ops, eventSource, target != "operations", isMaster)
			if ops.IsEmptyOrZero() {
				data = data.Delete(target)
				continue
			}
			data = data.Set(target, ops)
		}

		out = append(out, domain.Record{Kind: r.Kind, Name: r.Name, Payload: data})
	}
	return out, nil, nil
}

func renameAcknowledgeToUpdate(bucket string) string {
	if bucket == "acknowledgeOperations" {
		return "updateOperations"
	}
	return bucket
}

// translateConditions rewrites hostgroup/host/template id conditions,
// local id to stable name on the master side and back on the worker side;
// trigger-id conditions (conditiontype 2) have no cross-node identity and
// are dropped from the list entirely, per spec §4.4's action contract
// ("2=trigger-direct is dropped as not portable").
func translateConditions(nctx *Context, filter domain.Value, isMaster bool) domain.Value {
	conditions, ok := filter.Get("conditions")
	if !ok {
		return filter
	}
	items, ok := conditions.List()
	if !ok {
		return filter
	}
	out := make([]domain.Value, 0, len(items))
	for _, cond := range items {
		switch IntField(cond, "conditiontype") {
		case 0:
			out = append(out, translateFieldByKind(nctx, cond, "value", domain.KindHostGroup, isMaster))
		case 1:
			out = append(out, translateFieldByKind(nctx, cond, "value", domain.KindHost, isMaster))
		case 13:
			out = append(out, translateFieldByKind(nctx, cond, "value", domain.KindTemplate, isMaster))
		case 2:
			// trigger-direct condition: not portable, drop it.
		default:
			out = append(out, cond)
		}
	}
	return filter.Set("conditions", domain.List(out...))
}

func translateFieldByKind(nctx *Context, v domain.Value, field string, kind domain.Kind, isMaster bool) domain.Value {
	child, ok := v.Get(field)
	if !ok {
		return v
	}
	raw, ok := child.String()
	if !ok {
		return v
	}
	resolved := nctx.Identity.ToID(kind, raw)
	if isMaster {
		resolved = nctx.Identity.ToName(kind, raw)
	}
	return v.Set(field, domain.String(resolved))
}

// normalizeOperations strips empty/read-only fields from every operation
// entry and rewrites any id-shaped parameter it contains, in either
// direction depending on which side called it.
func normalizeOperations(nctx *Context, ops domain.Value, eventSource int, isUpdateOrRecovery bool, isMaster bool) domain.Value {
	items, ok := ops.List()
	if !ok {
		return ops
	}
	out := make([]domain.Value, 0, len(items))
	for _, op := range items {
		op = StripEmptyOrZero(op)
		if eventSource != eventSourceTrigger {
			op = op.Delete("evaltype")
		}
		if eventSource == eventSourceDiscovery || eventSource == eventSourceAutoreg {
			op = StripFields(op, discardOperateFields)
		}
		if isUpdateOrRecovery {
			op = op.Delete("evaltype")
			if IntField(op, "operationtype") == 11 {
				if msg, ok := op.Get("opmessage"); ok {
					op = op.Set("opmessage", msg.Delete("mediatypeid"))
				}
			}
		}
		op = walkIDFields(nctx, op, isMaster)
		out = append(out, op)
	}
	return domain.List(out...)
}

// StripEventSourceOnUpdate implements resolved Open Question 2: an
// action's eventsource is part of create but must not appear on update,
// since the API rejects changing it after creation. ConfigBridge calls
// this after Worker() once it knows whether the target action already
// exists.
func StripEventSourceOnUpdate(r domain.Record, isUpdate bool) domain.Record {
	if !isUpdate {
		return r
	}
	return domain.Record{Kind: r.Kind, Name: r.Name, Payload: r.Payload.Delete("eventsource")}
}
