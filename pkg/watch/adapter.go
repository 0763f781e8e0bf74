// file: pkg/watch/adapter.go

package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	platformv1 "github.com/fx147/preview-operator/pkg/apis/platform/v1"
	"github.com/fx147/preview-operator/pkg/kube/clientset"
	"github.com/fx147/preview-operator/pkg/metrics"
	"github.com/fx147/preview-operator/pkg/statecache"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
)

// ResumeTokenStore 持久化 watch 的续传令牌，
// 让重启后的进程可以直接续传 watch 而不用全量 List。
// adapter 只在启动时 Load；Save 由 dispatcher 在对应版本的事件
// 全部处理完毕后调用——落盘一个还没调谐完的版本，重启后会跳过丢失的事件。
// 令牌过期不是问题：过期会走 resync 路径。
type ResumeTokenStore interface {
	Load() (string, error)
	Save(version string) error
}

// Options 控制 Adapter 的重试行为。
type Options struct {
	// Backoff 是流断开后重建连接使用的退避策略。
	Backoff wait.Backoff

	// MaxConsecutiveFailures 是连续失败次数的上限。
	// 连续失败超过该值后 Run 返回致命错误，由进程所有者决定如何处理。
	// 任何一次成功的 List 或 watch 建连都会把计数清零。
	MaxConsecutiveFailures int
}

// healthyStreamLifetime 是一条 watch 流被当作健康所需的最短存活时间。
// 比这更短命的流计入连续失败：服务端快速掐断连接时不能零延迟地热循环重连。
const healthyStreamLifetime = 10 * time.Second

// DefaultBackoff 返回带抖动、有上限的指数退避。
func DefaultBackoff() wait.Backoff {
	return wait.Backoff{
		Duration: time.Second,
		Factor:   2.0,
		Jitter:   0.1,
		Steps:    64,
		Cap:      30 * time.Second,
	}
}

// Adapter 把一条会断开、会过期的服务端 watch 连接，
// 变成一个可恢复的事件序列：
//
//   - 连接断开后用最后观察到的 resourceVersion 续传；
//   - 令牌过期（"too old resource version"）时做 list-then-watch resync，
//     对照缓存快照合成 Added/Modified/Deleted 事件；
//   - 传输层错误按指数退避重试，超过上限才作为致命错误返回。
//
// 事件通过无缓冲 channel 交付：下游取走一个事件之前，adapter 不会去拉下一帧。
type Adapter struct {
	client clientset.PreviewEnvironmentInterface
	cache  *statecache.Cache
	tokens ResumeTokenStore // 可以为 nil
	opts   Options

	events chan Event
	lastRV string
}

// NewAdapter 创建一个 Adapter。tokens 可以为 nil，表示不持久化续传令牌。
func NewAdapter(client clientset.PreviewEnvironmentInterface, cache *statecache.Cache, tokens ResumeTokenStore, opts Options) *Adapter {
	if opts.Backoff.Duration == 0 {
		opts.Backoff = DefaultBackoff()
	}
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = 10
	}

	return &Adapter{
		client: client,
		cache:  cache,
		tokens: tokens,
		opts:   opts,
		events: make(chan Event),
	}
}

// Events 返回事件流。Run 退出时 channel 会被关闭。
func (a *Adapter) Events() <-chan Event {
	return a.events
}

// Run 驱动 watch 循环直到 ctx 被取消或重试耗尽。
// 正常运行时永不返回；返回非 nil 错误即为致命错误。
func (a *Adapter) Run(ctx context.Context) error {
	defer close(a.events)

	if a.tokens != nil {
		version, err := a.tokens.Load()
		if err != nil {
			klog.Warningf("Failed to load resume token, starting with a full list: %v", err)
		} else {
			a.lastRV = version
		}
	}

	// 没有续传令牌时必须先全量 List 建立基线
	needList := a.lastRV == ""
	failures := 0
	backoff := a.opts.Backoff

	retry := func(err error, what string) error {
		failures++
		if failures >= a.opts.MaxConsecutiveFailures {
			return fmt.Errorf("giving up after %d consecutive stream failures: %w", failures, err)
		}
		delay := backoff.Step()
		klog.Warningf("%s failed (attempt %d/%d), retrying in %s: %v", what, failures, a.opts.MaxConsecutiveFailures, delay, err)
		if !sleepContext(ctx, delay) {
			return ctx.Err()
		}
		return nil
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if needList {
			if err := a.resync(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if fatal := retry(err, "Resync"); fatal != nil {
					return fatal
				}
				continue
			}
			needList = false
			failures = 0
			backoff = a.opts.Backoff
		}

		stream, err := a.client.Watch(ctx, a.lastRV)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if isExpiredError(err) {
				klog.Infof("Resume token %q expired, falling back to a full resync", a.lastRV)
				needList = true
				continue
			}
			if fatal := retry(err, "Watch"); fatal != nil {
				return fatal
			}
			continue
		}

		metrics.WatchConnectionsTotal.Inc()
		klog.V(2).Infof("Watch established from version %q", a.lastRV)

		started := time.Now()
		stale, err := a.consume(ctx, stream)
		stream.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if stale {
			klog.Infof("Watch cursor expired mid-stream, falling back to a full resync")
			needList = true
			continue
		}

		// 建连成功但立刻就断的流不算健康，照样计入退避
		if lifetime := time.Since(started); lifetime < healthyStreamLifetime {
			if fatal := retry(fmt.Errorf("watch stream ended after %s: %w", lifetime.Round(time.Millisecond), err), "Watch"); fatal != nil {
				return fatal
			}
			continue
		}

		failures = 0
		backoff = a.opts.Backoff
		// 服务端关闭连接（io.EOF）或解码失败，从最后的版本续传
		klog.Warningf("Watch connection lost, re-establishing from version %q: %v", a.lastRV, err)
	}
}

// consume 消费一条已建立的 watch 流，直到流结束。
// 返回 stale=true 表示续传令牌已过期，调用方需要 resync。
func (a *Adapter) consume(ctx context.Context, stream *clientset.WatchStream) (stale bool, err error) {
	for {
		frame, err := stream.Next()
		if err != nil {
			// 包括 io.EOF（服务端正常结束本次 watch）和 ctx 取消导致的读失败
			return false, err
		}

		switch EventType(frame.Type) {
		case Added, Modified, Deleted:
			obj := &platformv1.PreviewEnvironment{}
			if err := json.Unmarshal(frame.Object, obj); err != nil {
				return false, fmt.Errorf("failed to decode %s event object: %w", frame.Type, err)
			}
			a.observe(obj.ResourceVersion)
			ev := Event{
				Type:            EventType(frame.Type),
				Key:             obj.Key(),
				ResourceVersion: obj.ResourceVersion,
				Object:          obj,
			}
			if !a.send(ctx, ev) {
				return false, ctx.Err()
			}

		case Error:
			var status metav1.Status
			_ = json.Unmarshal(frame.Object, &status)

			if isExpiredStatus(&status) {
				return true, nil
			}
			streamErr := &StreamError{
				Reason:   string(status.Reason),
				Message:  status.Message,
				Terminal: isTerminalStatus(&status),
			}
			if streamErr.Terminal {
				// 终结性错误：当前流不可再用，重建 watch
				return false, streamErr
			}
			// 瞬时错误只转发给下游记录，流继续
			if !a.send(ctx, Event{Type: Error, Err: streamErr}) {
				return false, ctx.Err()
			}

		default:
			klog.Warningf("Ignoring watch frame with unknown type %q", frame.Type)
		}
	}
}

// resync 执行 list-then-watch 的恢复路径：
// 全量 List，和缓存快照比对，合成事件，最后把续传点推进到列表的版本。
func (a *Adapter) resync(ctx context.Context) error {
	list, err := a.client.List(ctx)
	if err != nil {
		return fmt.Errorf("full list failed: %w", err)
	}

	metrics.ResyncsTotal.Inc()
	klog.Infof("Resync: reconciling %d listed objects against %d cached entries", len(list.Items), a.cache.Len())

	snapshot := a.cache.Snapshot()
	fresh := make(map[string]struct{}, len(list.Items))

	// 1. 列表里有的对象：缓存缺失 => Added；版本更新 => Modified
	for i := range list.Items {
		obj := &list.Items[i]
		key := obj.Key()
		fresh[key] = struct{}{}

		eventType := Added
		if cachedRV, ok := snapshot[key]; ok {
			if !statecache.NewerThan(obj.ResourceVersion, cachedRV) {
				continue
			}
			eventType = Modified
		}
		ev := Event{
			Type:            eventType,
			Key:             key,
			ResourceVersion: obj.ResourceVersion,
			Object:          obj,
		}
		if !a.send(ctx, ev) {
			return ctx.Err()
		}
	}

	// 2. 缓存里有、列表里没有的对象：合成 Deleted。
	//    没有完整对象可用，构造一个只带元数据的 tombstone。
	for key, cachedRV := range snapshot {
		if _, ok := fresh[key]; ok {
			continue
		}
		namespace, name := SplitKey(key)
		tombstone := &platformv1.PreviewEnvironment{}
		tombstone.Namespace = namespace
		tombstone.Name = name
		tombstone.ResourceVersion = cachedRV

		ev := Event{
			Type:            Deleted,
			Key:             key,
			ResourceVersion: cachedRV,
			Object:          tombstone,
		}
		if !a.send(ctx, ev) {
			return ctx.Err()
		}
	}

	a.observe(list.ResourceVersion)
	return nil
}

// observe 推进本次进程内的续传点。版本状态显式地在重启循环里流转，不放在全局变量里。
// 这里只更新内存：一个刚解码出来的版本还没被调谐，落盘要等 dispatcher 处理完。
func (a *Adapter) observe(version string) {
	if version == "" {
		return
	}
	a.lastRV = version
}

// send 交付一个事件。返回 false 表示 ctx 已取消。
func (a *Adapter) send(ctx context.Context, ev Event) bool {
	select {
	case a.events <- ev:
		metrics.EventsTotal.WithLabelValues(string(ev.Type)).Inc()
		return true
	case <-ctx.Done():
		return false
	}
}

// isExpiredError 判断 Watch 请求的错误是否是续传令牌过期。
func isExpiredError(err error) bool {
	return apierrors.IsResourceExpired(err) || apierrors.IsGone(err)
}

// isExpiredStatus 判断 ERROR 帧携带的 Status 是否是 "too old resource version"。
func isExpiredStatus(status *metav1.Status) bool {
	return status.Reason == metav1.StatusReasonExpired ||
		status.Reason == metav1.StatusReasonGone ||
		status.Code == http.StatusGone
}

// isTerminalStatus 判断 ERROR 帧是否终结当前流。
// 服务端内部错误意味着这条流的状态已不可信，需要重建；
// 其余（限流、超时一类）按瞬时错误处理。
func isTerminalStatus(status *metav1.Status) bool {
	return status.Reason == metav1.StatusReasonInternalError ||
		status.Code >= http.StatusInternalServerError
}

// sleepContext 等待 d，ctx 先取消时返回 false。
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
