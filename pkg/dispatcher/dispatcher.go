// file: pkg/dispatcher/dispatcher.go

package dispatcher

import (
	"context"
	"sync"
	"time"

	platformv1 "github.com/fx147/preview-operator/pkg/apis/platform/v1"
	"github.com/fx147/preview-operator/pkg/metrics"
	"github.com/fx147/preview-operator/pkg/statecache"
	"github.com/fx147/preview-operator/pkg/watch"
	"k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/workqueue"
	"k8s.io/klog/v2"
)

const (
	// maxRetries 是一个 key 在被放弃前的最大重试次数。
	maxRetries = 15
)

// ReconcileFunc 是用户提供的调谐回调：把真实世界的状态调整到 spec 描述的期望状态。
// 必须是幂等的，因为 watch 传输是 at-least-once 的。
type ReconcileFunc func(ctx context.Context, key string, spec platformv1.PreviewEnvironmentSpec) error

// TeardownFunc 是用户提供的清理回调，在对象被删除时调用。
type TeardownFunc func(ctx context.Context, key string) error

// Options 控制 Dispatcher 的并发和停机行为。
type Options struct {
	// Workers 是并发调谐的 worker 数量。默认为 1。
	// 不同 key 的调谐可以并行；同一个 key 由工作队列保证串行。
	Workers int

	// ShutdownGrace 是停机时等待在途调谐完成的最长时间，超时后强制终止。
	// 默认为 30 秒。
	ShutdownGrace time.Duration

	// Checkpoint 持久化 watch 的续传令牌，可以为 nil。
	// 只有当某个版本之前的所有事件都处理完毕时，令牌才会推进到该版本，
	// 所以重启后从令牌续传不会跳过任何还没调谐的变更。
	Checkpoint watch.ResumeTokenStore
}

// Dispatcher 按交付顺序消费 watch 事件，并通过限速工作队列把调谐
// 分发给 worker 池：
//
//   - Added/Modified 先和缓存比版本，不比缓存新的事件直接跳过（幂等保护）；
//   - 调谐成功后才更新缓存；Deleted 无条件清缓存；
//   - 某个 key 调谐失败只会让这个 key 带退避地重新入队，不阻塞其他 key；
//   - 每个 key 只保留最新的待处理事件（Deleted 优先），worker 永远处理最新状态；
//   - 配置了 Checkpoint 时，在途事件全部处理完毕后把观察到的最大版本落盘，
//     作为下次进程启动时 watch 的续传令牌。
type Dispatcher struct {
	cache     *statecache.Cache
	reconcile ReconcileFunc
	teardown  TeardownFunc

	// queue 只承载 key；事件内容放在 pending 里按 key 合并
	queue workqueue.TypedRateLimitingInterface[string]

	// pendingLock 同时保护 pending 和 checkpoint 的观察点状态
	pendingLock sync.Mutex
	pending     map[string]watch.Event
	inFlight    int    // 已接收但尚未处理完毕的事件数
	maxSeen     string // 观察到的最大 resourceVersion
	lastSaved   string // 最后一次成功落盘的令牌

	tokens watch.ResumeTokenStore // 可以为 nil

	workers       int
	shutdownGrace time.Duration
}

// New 创建一个 Dispatcher。
func New(cache *statecache.Cache, reconcile ReconcileFunc, teardown TeardownFunc, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 30 * time.Second
	}

	return &Dispatcher{
		cache:     cache,
		reconcile: reconcile,
		teardown:  teardown,
		queue: workqueue.NewTypedRateLimitingQueueWithConfig(
			workqueue.DefaultTypedControllerRateLimiter[string](),
			workqueue.TypedRateLimitingQueueConfig[string]{Name: "previewenvironment"},
		),
		pending:       make(map[string]watch.Event),
		tokens:        opts.Checkpoint,
		workers:       opts.Workers,
		shutdownGrace: opts.ShutdownGrace,
	}
}

// Run 启动 worker 池并消费 events，直到 ctx 被取消或 events 被关闭。
// 停机时先停止摄入新事件，限时排空在途任务，超时后强制关闭队列。
func (d *Dispatcher) Run(ctx context.Context, events <-chan watch.Event) error {
	defer runtime.HandleCrash()

	klog.Infof("Starting dispatcher with %d workers", d.workers)
	defer klog.Info("Shutting down dispatcher")

	// 在途调谐使用独立于 ctx 的 context，这样排空期间它们还能完成；
	// 排空超时后统一取消。
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	workerStop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wait.Until(func() { d.runWorker(workCtx) }, time.Second, workerStop)
		}()
	}

intake:
	for {
		select {
		case event, ok := <-events:
			if !ok {
				// adapter 已退出（致命错误或停机）
				klog.Warning("Event channel closed, dispatcher intake is stopping")
				break intake
			}
			d.handleEvent(event)
		case <-ctx.Done():
			break intake
		}
	}

	// 协作式停机
	drained := make(chan struct{})
	go func() {
		d.queue.ShutDownWithDrain()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(d.shutdownGrace):
		klog.Warningf("In-flight work did not drain within %s, forcing shutdown", d.shutdownGrace)
		d.queue.ShutDown()
		cancelWork()
		<-drained
	}

	close(workerStop)
	wg.Wait()
	return nil
}

// handleEvent 把一个事件合并进 pending 并把 key 入队。
// 合并规则：每个 key 只保留最新的事件；Deleted 不做版本比较，总是获胜。
func (d *Dispatcher) handleEvent(event watch.Event) {
	if event.Type == watch.Error {
		// 能到达这里的都是瞬时错误，记录后继续消费
		klog.Warningf("Transient watch error: %v", event.Err)
		return
	}

	// 先和缓存比版本，能在入队前丢弃的旧事件就不进队列
	if event.Type != watch.Deleted {
		if cached, ok := d.cache.Get(event.Key); ok {
			if !statecache.NewerThan(event.ResourceVersion, cached.ResourceVersion) {
				klog.V(4).Infof("Dropping stale %s event for %s (version %s <= cached %s)",
					event.Type, event.Key, event.ResourceVersion, cached.ResourceVersion)
				metrics.ReconcilesTotal.WithLabelValues("skipped").Inc()
				// 这个版本对应的状态已经调谐过了，观察点照常推进
				d.pendingLock.Lock()
				d.observeLocked(event.ResourceVersion)
				d.checkpointLocked()
				d.pendingLock.Unlock()
				return
			}
		}
	}

	d.pendingLock.Lock()
	existing, exists := d.pending[event.Key]
	accepted := true
	switch {
	case !exists:
		d.pending[event.Key] = event
		d.inFlight++
	case event.Type == watch.Deleted:
		// delete always wins。被取代的事件随新事件一起完成，在途计数不变。
		d.pending[event.Key] = event
	case existing.Type != watch.Deleted && statecache.NewerThan(event.ResourceVersion, existing.ResourceVersion):
		d.pending[event.Key] = event
	case existing.Type == watch.Deleted && statecache.NewerThan(event.ResourceVersion, existing.ResourceVersion):
		// 对象删除后又被重建：新对象的事件取代 tombstone。
		// 调谐是幂等的 apply，直接覆盖同名的下游资源。
		d.pending[event.Key] = event
	default:
		accepted = false
	}
	d.observeLocked(event.ResourceVersion)
	d.pendingLock.Unlock()

	if !accepted {
		return
	}
	d.queue.Add(event.Key)
}

// observeLocked 推进观察到的最大版本。调用方必须持有 pendingLock。
func (d *Dispatcher) observeLocked(version string) {
	if version == "" {
		return
	}
	if d.maxSeen == "" || statecache.NewerThan(version, d.maxSeen) {
		d.maxSeen = version
	}
}

// checkpointLocked 在没有任何在途事件时把观察点落盘。调用方必须持有 pendingLock。
// 令牌的含义是"此版本之前的事件都已处理完毕"，所以必须等队列排空才能推进；
// 过早落盘意味着崩溃重启后从令牌续传会跳过丢失的事件。
func (d *Dispatcher) checkpointLocked() {
	if d.tokens == nil || d.inFlight > 0 || d.maxSeen == "" || d.maxSeen == d.lastSaved {
		return
	}
	if err := d.tokens.Save(d.maxSeen); err != nil {
		klog.Warningf("Failed to checkpoint resume token %q: %v", d.maxSeen, err)
		return
	}
	d.lastSaved = d.maxSeen
}

// finishEvent 标记一个在途事件处理完毕（调谐成功、被放弃或被更新事件取代）。
func (d *Dispatcher) finishEvent() {
	d.pendingLock.Lock()
	d.inFlight--
	d.checkpointLocked()
	d.pendingLock.Unlock()
}

// takePending 取走 key 的待处理事件。
func (d *Dispatcher) takePending(key string) (watch.Event, bool) {
	d.pendingLock.Lock()
	defer d.pendingLock.Unlock()
	event, ok := d.pending[key]
	if ok {
		delete(d.pending, key)
	}
	return event, ok
}

// restorePending 在调谐失败后把事件放回去。期间到达了同 key 的更新事件时
// 返回 false：旧事件已被取代，不应再重试。
func (d *Dispatcher) restorePending(key string, event watch.Event) bool {
	d.pendingLock.Lock()
	defer d.pendingLock.Unlock()
	if _, exists := d.pending[key]; exists {
		return false
	}
	d.pending[key] = event
	return true
}

// runWorker 是一个持续运行的循环，负责从队列中消费任务并处理。
func (d *Dispatcher) runWorker(ctx context.Context) {
	for d.processNextWorkItem(ctx) {
	}
}

// processNextWorkItem 从队列中取出一个 key，处理它对应的最新事件。
func (d *Dispatcher) processNextWorkItem(ctx context.Context) bool {
	key, quit := d.queue.Get()
	if quit {
		return false
	}
	defer d.queue.Done(key)

	event, ok := d.takePending(key)
	if !ok {
		// 事件已经被更早的一次出队处理掉了（key 被重复入队）
		d.queue.Forget(key)
		return true
	}

	err := d.process(ctx, event)
	d.handleErr(err, key, event)

	return true
}

// process 执行一个事件对应的副作用。缓存只在回调成功之后更新。
func (d *Dispatcher) process(ctx context.Context, event watch.Event) error {
	switch event.Type {
	case watch.Deleted:
		if err := d.teardown(ctx, event.Key); err != nil {
			return err
		}
		// Deleted 无条件移除缓存条目，不做版本比较
		d.cache.Delete(event.Key)
		klog.V(2).Infof("Tore down %s", event.Key)
		return nil

	case watch.Added, watch.Modified:
		// 权威的版本检查：入队之后缓存可能已经被并发的调谐推进了
		if cached, ok := d.cache.Get(event.Key); ok {
			if !statecache.NewerThan(event.ResourceVersion, cached.ResourceVersion) {
				metrics.ReconcilesTotal.WithLabelValues("skipped").Inc()
				return nil
			}
		}

		if err := d.reconcile(ctx, event.Key, event.Object.Spec); err != nil {
			metrics.ReconcilesTotal.WithLabelValues("error").Inc()
			return err
		}
		d.cache.Put(statecache.CachedObject{
			Key:             event.Key,
			ResourceVersion: event.ResourceVersion,
			Spec:            event.Object.Spec,
		})
		metrics.ReconcilesTotal.WithLabelValues("success").Inc()
		klog.V(2).Infof("Reconciled %s (version %s)", event.Key, event.ResourceVersion)
		return nil
	}

	klog.Warningf("Ignoring event with unexpected type %q for %s", event.Type, event.Key)
	return nil
}

// handleErr 负责处理 process 返回的错误，并决定是否重试。
// 重试只影响这一个 key：事件放回 pending，key 带退避地重新入队。
func (d *Dispatcher) handleErr(err error, key string, event watch.Event) {
	if err == nil {
		d.queue.Forget(key)
		d.finishEvent()
		return
	}

	if d.queue.NumRequeues(key) < maxRetries {
		if !d.restorePending(key, event) {
			// 重试还没开始，同 key 的更新事件已经到达并接管了这个 key
			d.queue.Forget(key)
			d.finishEvent()
			return
		}
		klog.V(2).Infof("Error processing %s event for %v: %v. Retrying.", event.Type, key, err)
		d.queue.AddRateLimited(key)
		metrics.ReconcileRetriesTotal.Inc()
		return
	}

	runtime.HandleError(err)
	klog.Warningf("Dropping %s event for %q out of the queue: %v", event.Type, key, err)
	d.queue.Forget(key)
	d.finishEvent()
}
