// file: pkg/statecache/cache.go

package statecache

import (
	"strconv"
	"sync"

	platformv1 "github.com/fx147/preview-operator/pkg/apis/platform/v1"
)

// CachedObject 是某个 key 最后一次成功调谐的对象快照。
// 它只会在调谐成功后由 dispatcher 写入，resync 时用来和服务端的全量列表做 diff。
type CachedObject struct {
	// Key 是对象的唯一标识，形如 "namespace/name"
	Key string
	// ResourceVersion 是该快照对应的版本令牌
	ResourceVersion string
	// Spec 是对象的期望状态快照
	Spec platformv1.PreviewEnvironmentSpec
}

// Cache 维护 key 到最后已知对象的映射。
// 所有方法都可以被多个 worker goroutine 并发调用。
type Cache struct {
	mu      sync.RWMutex
	objects map[string]CachedObject
}

func New() *Cache {
	return &Cache{
		objects: make(map[string]CachedObject),
	}
}

// Get 返回 key 对应的缓存对象。
func (c *Cache) Get(key string) (CachedObject, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	obj, ok := c.objects[key]
	return obj, ok
}

// Put 在新对象的版本严格大于缓存中的版本时写入，并返回是否写入成功。
// key 不存在时总是写入成功。版本检查和写入在同一把锁内完成，
// 保证并发的 worker 不会用旧版本覆盖新版本。
func (c *Cache) Put(obj CachedObject) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.objects[obj.Key]; ok {
		if !NewerThan(obj.ResourceVersion, existing.ResourceVersion) {
			return false
		}
	}
	c.objects[obj.Key] = obj
	return true
}

// Delete 无条件移除缓存条目。删除永远成功，不做版本比较（delete always wins）。
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, key)
}

// Snapshot 返回当前所有 key 和版本的拷贝，供 resync 做集合比对。
func (c *Cache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]string, len(c.objects))
	for key, obj := range c.objects {
		snapshot[key] = obj.ResourceVersion
	}
	return snapshot
}

// Len 返回缓存中的对象数量。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}

// NewerThan 判断版本令牌 a 是否比 b 新。
// 令牌本身是不透明的，但 etcd 后端的 API Server 发出的令牌都是十进制数字，
// 两边都能解析时按数值比较；任何一边解析失败就退化为不等判断
// （和周期性 resync 配合，足以纠正可能的误判）。
func NewerThan(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	if errA == nil && errB == nil {
		return na > nb
	}
	return a != b
}
