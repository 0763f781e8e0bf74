package metrics

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"
)

// Exporter 暴露 /metrics 和 /healthz。
// 致命的流错误通过 MarkUnhealthy 让 /healthz 翻转为 503，
// 这是除进程退出码之外唯一向外暴露致命错误的信号。
type Exporter struct {
	address string

	listener  net.Listener
	server    *http.Server
	unhealthy atomic.Bool
}

func NewExporter(address string) *Exporter {
	return &Exporter{
		address: address,
	}
}

// MarkUnhealthy 将健康检查翻转为失败。不可逆：恢复健康意味着进程重启。
func (e *Exporter) MarkUnhealthy() {
	e.unhealthy.Store(true)
}

func (e *Exporter) Listen() error {
	klog.Infof("metrics server listening on %s", e.address)

	listener, err := net.Listen("tcp", e.address)
	if err != nil {
		return err
	}

	e.listener = listener
	return nil
}

func (e *Exporter) Serve() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if e.unhealthy.Load() {
			http.Error(w, "watch stream failed", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	e.server = &http.Server{
		Handler: mux,
	}

	err := e.server.Serve(e.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (e *Exporter) Shutdown() error {
	if e.server == nil {
		return nil
	}
	return e.server.Shutdown(context.Background())
}
