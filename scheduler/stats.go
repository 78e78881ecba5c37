package scheduler

import (
	"time"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// ServeStats starts a statsview-backed HTTP dashboard on addr (e.g.
// ":18066") showing statsview's live Go runtime metrics, for runtime
// diagnostics. It shows no scheduler-specific data (no task count or
// per-task debt). It is a pure
// addition for observability, never required for correctness, and is off
// unless a caller opts in. The returned Viewer's Stop method should be
// called during machine teardown.
func (s *Scheduler) ServeStats(addr string) *statsview.Viewer {
	v := statsview.New(viewer.WithAddr(addr), viewer.WithInterval(time.Second))
	go v.Start()
	return v
}
