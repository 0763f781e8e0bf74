package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal 统计 adapter 交付给 dispatcher 的事件数，按类型分类。
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "preview_operator_watch_events_total",
		Help: "Number of watch events delivered to the dispatcher, by event type.",
	}, []string{"type"})

	// ReconcilesTotal 统计调谐回调的执行结果。
	// result 取值: success / error / skipped
	ReconcilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "preview_operator_reconciles_total",
		Help: "Number of reconcile invocations, by result.",
	}, []string{"result"})

	// ReconcileRetriesTotal 统计因调谐失败而重新入队的次数。
	ReconcileRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preview_operator_reconcile_retries_total",
		Help: "Number of keys requeued after a failed reconcile.",
	})

	// ResyncsTotal 统计 list-then-watch 全量恢复的次数。
	ResyncsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preview_operator_resyncs_total",
		Help: "Number of full list-then-watch resyncs.",
	})

	// WatchConnectionsTotal 统计 watch 连接建立的次数（含重建）。
	WatchConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preview_operator_watch_connections_total",
		Help: "Number of watch connections established, including re-establishments.",
	})
)
