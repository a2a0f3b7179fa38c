// Package hostreconcile implements the host-import fan-out: the one
// component whose target entity can't go through internal/normalize's
// per-kind Processor shape, because deciding create-vs-update-vs-skip
// needs a live comparison against the local Monitor's current host list
// (spec.md §4.6), not just the stored record.
package hostreconcile

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/monctl/monctl/internal/domain"
	"github.com/monctl/monctl/internal/identity"
	"github.com/monctl/monctl/internal/monitorapi"
	"github.com/monctl/monctl/internal/presenter"
)

// Config holds the flags and concurrency knobs HostReconciler needs
// (spec.md §4.6).
type Config struct {
	Node              string
	Replica           bool // this node's role is "replica": every host is eligible
	HostUpdate        bool
	ForceHostUpdate   bool
	ForceUseIP        bool
	NoDelete          bool
	WorkerConcurrency int
}

// Reconciler drives host selection, the create/update/skip decision, the
// bounded-concurrency apply fan-out, interface reconciliation, and the
// trailing deletion pass.
type Reconciler struct {
	Client    monitorapi.Client
	Identity  *identity.Map
	Config    Config
	Presenter presenter.Presenter
}

// Result tallies what happened, for the run summary (spec.md §7: "a
// single host failure... must not abort the pipeline").
type Result struct {
	Created          int
	Updated          int
	Skipped          int
	Failed           []*ErrHostApplyFailed
	InterfacesSkipped []string
	InterfaceFailed   []*ErrInterfaceApplyFailed
	Deleted           int
	DeleteFailed      []*ErrHostApplyFailed

	// AppliedHostIDs are the local ids of every host successfully created
	// or updated this run, for CHECK_NOW to issue task.create against
	// (spec.md §4.7 CHECK_NOW).
	AppliedHostIDs []string
}

type action int

const (
	actionCreate action = iota
	actionUpdate
	actionSkip
)

type plan struct {
	record          domain.Record
	action          action
	hostID          string
	dropDisplayName bool
}

// Select filters a snapshot's host records down to the ones this worker
// is responsible for: tagged for this node via WorkerTag, or every host
// when the node's role is replica (spec.md §4.6). Eligible hosts carry
// the master's reported status unchanged; a replica never overrides it.
func Select(records []domain.Record, node string, replica bool) []domain.Record {
	var out []domain.Record
	for _, r := range records {
		if replica {
			out = append(out, r)
			continue
		}
		if hasWorkerTag(r.Payload, node) {
			out = append(out, r)
		}
	}
	return out
}

func hasWorkerTag(payload domain.Value, node string) bool {
	tags, ok := payload.Get("tags")
	if !ok {
		return false
	}
	list, _ := tags.List()
	for _, tag := range list {
		if fieldString(tag, "tag") == domain.WorkerTag && fieldString(tag, "value") == node {
			return true
		}
	}
	return false
}

func carryTag(payload domain.Value) string {
	tags, ok := payload.Get("tags")
	if !ok {
		return ""
	}
	list, _ := tags.List()
	for _, tag := range list {
		if fieldString(tag, "tag") == domain.UUIDTag {
			return fieldString(tag, "value")
		}
	}
	return ""
}

// localHost is one entry from the local Monitor's current host.get
// result, indexed by both display name and carry-tag UUID.
type localHost struct {
	id   string
	uuid string
}

// firstID extracts the first element of a list-shaped create response
// field, e.g. host.create's {"hostids": ["10084"]}.
func firstID(v domain.Value, key string) string {
	field, ok := v.Get(key)
	if !ok {
		return ""
	}
	list, ok := field.List()
	if !ok || len(list) == 0 {
		return ""
	}
	id, _ := list[0].String()
	return id
}

func indexLocalHosts(local []domain.Value) (byName, byUUID map[string]localHost) {
	byName = make(map[string]localHost, len(local))
	byUUID = make(map[string]localHost, len(local))
	for _, h := range local {
		lh := localHost{id: fieldString(h, "hostid"), uuid: carryTag(h)}
		byName[fieldString(h, "name")] = lh
		if lh.uuid != "" {
			byUUID[lh.uuid] = lh
		}
	}
	return byName, byUUID
}

// classify applies the decision matrix in spec.md §4.6, keyed on the
// carry-tag UUID (stable identity across renames) and the display name
// (what a human sees).
func classify(byName, byUUID map[string]localHost, displayName, uuid string, hostUpdate, forceHostUpdate bool) plan {
	p := plan{}
	localByName, sameName := byName[displayName]
	localByUUID, sameUUID := byUUID[uuid]

	switch {
	case sameName && sameUUID && localByName.id == localByUUID.id:
		p.action = actionUpdate
		p.hostID = localByName.id
	case sameName:
		if hostUpdate {
			p.action = actionUpdate
			p.hostID = localByName.id
		} else {
			p.action = actionSkip
		}
	case sameUUID:
		if forceHostUpdate {
			p.action = actionUpdate
			p.hostID = localByUUID.id
			p.dropDisplayName = true
		} else {
			p.action = actionSkip
		}
	default:
		p.action = actionCreate
	}
	return p
}

// Reconcile fetches the local host list, normalizes and classifies every
// eligible record, applies creates/updates with bounded concurrency, then
// reconciles interfaces and (unless NoDelete) deletes local hosts absent
// from the processed set — each phase strictly after the one before it
// (spec.md §4.6: "Interface updates and host deletions run serially after
// the bulk phase").
func (r *Reconciler) Reconcile(ctx context.Context, records []domain.Record) (*Result, error) {
	local, err := r.Client.Get(ctx, "host", domain.Map().
		Set("output", domain.String("extend")).
		Set("selectTags", domain.String("extend")).
		Set("selectInterfaces", domain.String("extend")))
	if err != nil {
		return nil, &ErrFetchLocalHosts{Cause: err}
	}
	byName, byUUID := indexLocalHosts(local)
	localInterfaces := make(map[string][]domain.Value, len(local))
	for _, h := range local {
		ifs, ok := h.Get("interfaces")
		if !ok {
			continue
		}
		list, _ := ifs.List()
		localInterfaces[fieldString(h, "hostid")] = list
	}

	eligible := Select(records, r.Config.Node, r.Config.Replica)
	plans := make([]plan, 0, len(eligible))
	processed := make(map[string]bool, len(eligible))
	for _, rec := range eligible {
		uuid := carryTag(rec.Payload)
		p := classify(byName, byUUID, rec.Name, uuid, r.Config.HostUpdate, r.Config.ForceHostUpdate)
		p.record = rec
		plans = append(plans, p)
		processed[rec.Name] = true
	}

	result := &Result{}
	targetInterfaces := make(map[string][]domain.Value, len(plans))

	group, gctx := errgroup.WithContext(ctx)
	limit := r.Config.WorkerConcurrency
	if limit <= 0 {
		limit = 4
	}
	group.SetLimit(limit)

	type outcome struct {
		action  action
		hostID  string
		name    string
		ifaces  []domain.Value
		err     error
	}
	outcomes := make(chan outcome, len(plans))

	for _, p := range plans {
		p := p
		if p.action == actionSkip {
			outcomes <- outcome{action: actionSkip, name: p.record.Name}
			continue
		}
		group.Go(func() error {
			payload := NormalizeHost(r.Identity, r.Config.ForceUseIP, p.record.Payload)
			ifaces, hasIfaces := payload.Get("interfaces")
			payload = payload.Delete("interfaces")
			if p.dropDisplayName {
				payload = payload.Delete("host").Delete("name")
			}

			var err error
			hostID := p.hostID
			switch p.action {
			case actionCreate:
				var created domain.Value
				created, err = r.Client.Create(gctx, "host", payload)
				if err == nil {
					hostID = firstID(created, "hostids")
				}
			case actionUpdate:
				payload = payload.Set("hostid", domain.String(p.hostID))
				_, err = r.Client.Update(gctx, "host", payload)
			}
			var list []domain.Value
			if hasIfaces {
				list, _ = ifaces.List()
			}
			if err != nil {
				outcomes <- outcome{action: p.action, name: p.record.Name, err: err}
				return nil
			}
			outcomes <- outcome{action: p.action, hostID: hostID, name: p.record.Name, ifaces: list}
			return nil
		})
	}
	_ = group.Wait()
	close(outcomes)

	for o := range outcomes {
		switch {
		case o.err != nil:
			fail := &ErrHostApplyFailed{Host: o.name, Cause: o.err}
			result.Failed = append(result.Failed, fail)
			if r.Presenter != nil {
				r.Presenter.RecordFailure("host", o.name, o.err)
			}
		case o.action == actionSkip:
			result.Skipped++
		case o.action == actionCreate:
			result.Created++
			result.AppliedHostIDs = append(result.AppliedHostIDs, o.hostID)
			if len(o.ifaces) > 0 {
				targetInterfaces[o.hostID] = o.ifaces
			}
		case o.action == actionUpdate:
			result.Updated++
			result.AppliedHostIDs = append(result.AppliedHostIDs, o.hostID)
			if len(o.ifaces) > 0 {
				targetInterfaces[o.hostID] = o.ifaces
			}
		}
	}

	for hostID, target := range targetInterfaces {
		current := localInterfaces[hostID]
		ifPlan := PlanInterfaces(hostID, current, normalizeTargetInterfaces(target, r.Config.ForceUseIP))
		if ifPlan.Skipped {
			result.InterfacesSkipped = append(result.InterfacesSkipped, hostID)
			continue
		}
		for _, upd := range ifPlan.Updates {
			if _, err := r.Client.Call(ctx, "hostinterface.update", upd); err != nil {
				result.InterfaceFailed = append(result.InterfaceFailed, &ErrInterfaceApplyFailed{Host: hostID, Cause: err})
			}
		}
		for _, id := range ifPlan.Delete {
			if _, err := r.Client.Call(ctx, "hostinterface.delete", domain.List(domain.String(id))); err != nil {
				result.InterfaceFailed = append(result.InterfaceFailed, &ErrInterfaceApplyFailed{Host: hostID, Cause: err})
			}
		}
	}

	if !r.Config.NoDelete {
		for name, lh := range byName {
			if processed[name] {
				continue
			}
			if _, err := r.Client.Delete(ctx, "host", []string{lh.id}); err != nil {
				result.DeleteFailed = append(result.DeleteFailed, &ErrHostApplyFailed{Host: name, Cause: err})
				continue
			}
			result.Deleted++
		}
	}

	return result, nil
}

func normalizeTargetInterfaces(list []domain.Value, forceUseIP bool) []domain.Value {
	return normalizeInterfaces(list, forceUseIP)
}

// String renders a compact one-line summary, handy for logging; the
// interactive presenter builds its own richer report from the same
// counters.
func (r Result) String() string {
	return fmt.Sprintf("hosts: %d created, %d updated, %d skipped, %d failed; %d deleted",
		r.Created, r.Updated, r.Skipped, len(r.Failed), r.Deleted)
}
