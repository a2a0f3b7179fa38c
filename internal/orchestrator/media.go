package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/monctl/monctl/internal/domain"
)

// MediaAssignment configures one user's alert notifications for one media
// type: destination address(es), a severity bitmask built from the 6
// Monitor severity levels, and a weekly work-time window per day. Grounded
// on original_source/zc.py's setAlertMedia, which reads this shape from
// operator configuration rather than the snapshot (no entity kind carries
// per-user notification assignments).
type MediaAssignment struct {
	To       []string
	Severity [6]bool
	WorkTime map[string]string // weekday (MON, TUE, ...) -> "HH:MM-HH:MM"
}

var weekdayOrder = []string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

var workTimePattern = regexp.MustCompile(`^\d{1,2}:\d{2}-\d{1,2}:\d{2}$`)

func severityBitmask(sev [6]bool) int {
	mask := 0
	for lv, on := range sev {
		if on {
			mask += 1 << uint(lv)
		}
	}
	return mask
}

func periodString(workTime map[string]string) string {
	var parts []string
	for i, day := range weekdayOrder {
		t := workTime[day]
		if t == "" || !workTimePattern.MatchString(t) {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d,%s", i+1, t))
	}
	return strings.Join(parts, ";")
}

// reconcileMedia applies every configured media assignment whose media
// type and user both resolve in the local IdentityMap, as a user.update
// per affected user (spec §4.7 MEDIA; original_source/zc.py's
// setAlertMedia, minus the replica role, which never gets notifications).
func (o *Orchestrator) reconcileMedia(ctx context.Context, result *Result) {
	if o.Options.Role == "replica" || len(o.Options.MediaSettings) == 0 {
		return
	}

	userMediasKey := "user_medias"
	if releaseMajor(o.Profile.Release) >= 6.2 {
		userMediasKey = "medias"
	}

	byUser := map[string][]domain.Value{}
	for mediaName, users := range o.Options.MediaSettings {
		mediaID := o.Identity.ToID(domain.KindMediaType, mediaName)
		if mediaID == string(domain.SentinelMissing) {
			continue
		}
		for userName, assignment := range users {
			userID := o.Identity.ToID(domain.KindUser, userName)
			if userID == string(domain.SentinelMissing) || len(assignment.To) == 0 {
				continue
			}
			period := periodString(assignment.WorkTime)
			severity := severityBitmask(assignment.Severity)
			if period == "" || severity == 0 {
				continue
			}
			addresses := make([]domain.Value, len(assignment.To))
			for i, a := range assignment.To {
				addresses[i] = domain.String(a)
			}
			media := domain.Map().
				Set("mediatypeid", domain.String(mediaID)).
				Set("sendto", domain.List(addresses...)).
				Set("active", domain.Number(0)).
				Set("severity", domain.Number(float64(severity))).
				Set("period", domain.String(period))
			byUser[userID] = append(byUser[userID], media)
		}
	}

	for userID, medias := range byUser {
		payload := domain.Map().
			Set("userid", domain.String(userID)).
			Set(userMediasKey, domain.List(medias...))
		if _, err := o.Client.Update(ctx, "user", payload); err != nil {
			o.fail(result, "MEDIA", "user", userID, err)
		}
	}
}
