package profiler

import (
	"github.com/volcengine/apminsight-profiler-go/session"
)

// Dump returns the session's aggregate for mode with the in-flight items
// merged in. In-flight items stay tracked, so they show up again in the
// next dump until they are added.
func (p *Profiler) Dump(mode session.Mode) session.Dump {
	p.lock.Lock()
	p.evictLocked()
	items := p.inflight.items()
	dump := p.session.Dump(mode)
	p.lock.Unlock()

	switch mode {
	case session.ModeMinimize:
		for _, item := range items {
			n, _ := dump[item.Name()].(int)
			dump[item.Name()] = n + item.Count()
		}
	case session.ModeMedium:
		for _, item := range items {
			session.MergeMedium(dump, item.Snapshot())
		}
		formatMedium(dump)
	default:
		preparing := make([]session.Record, 0, len(items))
		for _, item := range items {
			preparing = append(preparing, item.Snapshot())
		}
		dump[session.PreparingKey] = preparing
	}
	return dump
}

// formatMedium turns every numeric group into its "<count> (<avg>ms)" form.
func formatMedium(dump session.Dump) {
	for name, v := range dump {
		groups, ok := v.(map[string]*session.Aggregate)
		if !ok {
			continue
		}
		formatted := make(map[string]string, len(groups))
		for key, agg := range groups {
			formatted[key] = agg.String()
		}
		dump[name] = formatted
	}
}
