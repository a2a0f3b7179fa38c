package normalize

import (
	"context"
	"time"

	"github.com/monctl/monctl/internal/domain"
)

func init() {
	Register(domain.KindMaintenance, maintenanceProcessor{})
}

type maintenanceProcessor struct{}

// timeperiodDiscard lists, per timeperiod_type, the timeperiod fields that
// recurrence type doesn't use and the API rejects if present.
var timeperiodDiscard = map[int][]string{
	0: {"start_time", "every", "day", "dayofweek", "month"}, // one-off
	1: {"start_date", "dayofweek"},                          // daily
	2: {"start_date", "day"},                                // weekly
	3: {"start_date"},                                       // monthly
}

func (maintenanceProcessor) Master(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformMaintenance(nctx, records, true)
}

func (maintenanceProcessor) Worker(ctx context.Context, nctx *Context, records []domain.Record) ([]domain.Record, []domain.Record, error) {
	return transformMaintenance(nctx, records, false)
}

func transformMaintenance(nctx *Context, records []domain.Record, isMaster bool) ([]domain.Record, []domain.Record, error) {
	kind := domain.KindMaintenance
	records = runCommonPass(nctx, kind, records)
	now := time.Now().Unix()

	out := make([]domain.Record, 0, len(records))
	for _, r := range records {
		data := r.Payload

		periods, _ := data.Get("timeperiods")
		items, _ := periods.List()
		kept := make([]domain.Value, 0, len(items))
		for _, period := range items {
			t := IntField(period, "timeperiod_type")
			if t == 0 {
				start := IntField(period, "start_date")
				length := IntField(period, "period")
				if int64(start+length) < now {
					continue
				}
			}
			period = StripFields(period, timeperiodDiscard[t])
			kept = append(kept, period)
		}
		if len(kept) == 0 {
			continue
		}
		data = data.Set("timeperiods", domain.List(kept...))

		if int64(IntField(data, "active_till")) < now {
			continue
		}

		groupsKey, hostsKey := "groups", "hosts"
		if nctx.major() >= 6.2 {
			groupsKey, hostsKey = "hostgroups", "hosts"
		}

		if isMaster {
			data = translateTargetListToNames(nctx, data, groupsKey, domain.KindHostGroup)
			data = translateTargetListToNames(nctx, data, hostsKey, domain.KindHost)
			if tags, ok := data.Get("tags"); ok && tags.IsEmptyOrZero() {
				data = data.Delete("tags")
			}
		} else {
			data = translateTargetListToIDs(nctx, data, groupsKey, domain.KindHostGroup)
			data = translateTargetListToIDs(nctx, data, hostsKey, domain.KindHost)
		}

		groupsEmpty := fieldEmpty(data, groupsKey)
		hostsEmpty := fieldEmpty(data, hostsKey)
		if groupsEmpty && hostsEmpty {
			continue
		}

		out = append(out, domain.Record{Kind: r.Kind, Name: r.Name, Payload: data})
	}
	return out, nil, nil
}

func fieldEmpty(v domain.Value, key string) bool {
	child, ok := v.Get(key)
	return !ok || child.IsEmptyOrZero()
}

// translateTargetListToNames turns a create-shaped list of {id: x} or {name: x}
// objects into a flat list of stable names, for the master's upload.
func translateTargetListToNames(nctx *Context, v domain.Value, key string, kind domain.Kind) domain.Value {
	child, ok := v.Get(key)
	if !ok {
		return v
	}
	items, _ := child.List()
	names := make([]domain.Value, 0, len(items))
	for _, item := range items {
		name := StringField(item, "name")
		if name == "" {
			id := StringField(item, "id")
			name = nctx.Identity.ToName(kind, id)
		}
		names = append(names, domain.String(name))
	}
	if len(names) == 0 {
		return v.Delete(key)
	}
	return v.Set(key, domain.List(names...))
}

// translateTargetListToIDs is the worker-side inverse: a flat list of
// names becomes a list of {id: localId} objects, dropping any name this
// node has no local id for.
func translateTargetListToIDs(nctx *Context, v domain.Value, key string, kind domain.Kind) domain.Value {
	child, ok := v.Get(key)
	if !ok {
		return v
	}
	items, _ := child.List()
	out := make([]domain.Value, 0, len(items))
	for _, item := range items {
		name, ok := item.String()
		if !ok {
			continue
		}
		id := nctx.Identity.ToID(kind, name)
		if id == string(domain.SentinelMissing) {
			continue
		}
		out = append(out, domain.Map().Set("id", domain.String(id)))
	}
	if len(out) == 0 {
		return v.Delete(key)
	}
	return v.Set(key, domain.List(out...))
}
