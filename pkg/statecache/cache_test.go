package statecache

import (
	"testing"

	platformv1 "github.com/fx147/preview-operator/pkg/apis/platform/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCachedObject(key, version, image string) CachedObject {
	return CachedObject{
		Key:             key,
		ResourceVersion: version,
		Spec: platformv1.PreviewEnvironmentSpec{
			Image: image,
			FQDN:  "a.com",
		},
	}
}

func TestCache_PutRequiresStrictlyNewerVersion(t *testing.T) {
	c := New()

	// key 不存在时总是写入成功
	require.True(t, c.Put(newCachedObject("default/pe-1", "5", "x:latest")))

	// 版本相等：拒绝
	assert.False(t, c.Put(newCachedObject("default/pe-1", "5", "x:other")))

	// 版本更旧：拒绝
	assert.False(t, c.Put(newCachedObject("default/pe-1", "4", "x:old")))

	// 版本更新：写入
	assert.True(t, c.Put(newCachedObject("default/pe-1", "7", "x:v2")))

	got, ok := c.Get("default/pe-1")
	require.True(t, ok)
	assert.Equal(t, "7", got.ResourceVersion)
	assert.Equal(t, "x:v2", got.Spec.Image)
}

// 对同一个 key 的一串版本递增事件，缓存最终只保留最后一个事件的对象。
func TestCache_IncreasingVersionsKeepLast(t *testing.T) {
	c := New()

	versions := []string{"1", "2", "5", "9", "12"}
	for _, v := range versions {
		require.True(t, c.Put(newCachedObject("default/pe-1", v, "img:"+v)))
	}

	got, ok := c.Get("default/pe-1")
	require.True(t, ok)
	assert.Equal(t, "12", got.ResourceVersion)
	assert.Equal(t, "img:12", got.Spec.Image)
	assert.Equal(t, 1, c.Len())
}

// Deleted 永远成功，不做版本比较。
func TestCache_DeleteAlwaysWins(t *testing.T) {
	c := New()
	require.True(t, c.Put(newCachedObject("default/pe-1", "100", "x:latest")))

	c.Delete("default/pe-1")
	_, ok := c.Get("default/pe-1")
	assert.False(t, ok)

	// 删除不存在的 key 也不会出错
	c.Delete("default/pe-1")
	assert.Equal(t, 0, c.Len())
}

func TestCache_Snapshot(t *testing.T) {
	c := New()
	require.True(t, c.Put(newCachedObject("default/pe-1", "3", "a")))
	require.True(t, c.Put(newCachedObject("default/pe-2", "8", "b")))

	snapshot := c.Snapshot()
	assert.Equal(t, map[string]string{
		"default/pe-1": "3",
		"default/pe-2": "8",
	}, snapshot)

	// Snapshot 是拷贝，修改它不影响缓存
	snapshot["default/pe-1"] = "999"
	got, _ := c.Get("default/pe-1")
	assert.Equal(t, "3", got.ResourceVersion)
}

func TestNewerThan(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"numeric newer", "7", "5", true},
		{"numeric equal", "5", "5", false},
		{"numeric older", "5", "7", false},
		{"numeric not lexicographic", "10", "9", true},
		{"opaque differs", "abc", "def", true},
		{"opaque equal", "abc", "abc", false},
		{"mixed differs", "abc", "5", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewerThan(tt.a, tt.b))
		})
	}
}
