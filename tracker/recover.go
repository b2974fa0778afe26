package tracker

import (
	"time"

	"github.com/hashicorp/go-multierror"

	"activitytracker/entity"
)

// RecoverTotals rebuilds per-app totals from records persisted earlier
// the same day. Records are grouped by (app name, title, path) keeping the
// largest total_time, since totals are cumulative; an app seen under
// several titles keeps the largest group. Unparsable totals are skipped
// and reported in the error.
func RecoverTotals(records []entity.ActivityRecord) (map[string]Usage, error) {
	type key struct{ name, title, path string }
	var errs error
	groups := map[key]int64{}
	for _, r := range records {
		secs, err := entity.ParseHMS(r.TotalTime)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		k := key{r.AppName, r.AppTitle, r.AppPath}
		if cur, ok := groups[k]; !ok || secs > cur {
			groups[k] = secs
		}
	}

	out := make(map[string]Usage, len(groups))
	for k, secs := range groups {
		total := time.Duration(secs) * time.Second
		if cur, ok := out[k.name]; ok && cur.Total >= total {
			continue
		}
		out[k.name] = Usage{Total: total, Title: k.title, Path: k.path}
	}
	return out, errs
}
