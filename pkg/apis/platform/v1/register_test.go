// file: pkg/apis/platform/v1/register_test.go

package v1

import (
	"testing"

	"k8s.io/apimachinery/pkg/runtime"
)

// 注册进 Scheme 之后，类型必须可以通过 GVK 双向查找：
// 这是把对象交给任何基于 Scheme 的序列化器或存储层的前提。
func TestAddToScheme(t *testing.T) {
	scheme := runtime.NewScheme()
	if err := AddToScheme(scheme); err != nil {
		t.Fatalf("AddToScheme failed: %v", err)
	}

	// 正向：从 GVK 构造出正确的 Go 类型
	gvk := SchemeGroupVersion.WithKind("PreviewEnvironment")
	obj, err := scheme.New(gvk)
	if err != nil {
		t.Fatalf("Scheme cannot create %v: %v", gvk, err)
	}
	if _, ok := obj.(*PreviewEnvironment); !ok {
		t.Fatalf("Expected *PreviewEnvironment for %v, got %T", gvk, obj)
	}

	// 反向：从对象实例查回注册的 GVK
	kinds, _, err := scheme.ObjectKinds(&PreviewEnvironmentList{})
	if err != nil {
		t.Fatalf("ObjectKinds failed: %v", err)
	}
	if len(kinds) != 1 {
		t.Fatalf("Expected exactly one registered kind, got %v", kinds)
	}
	if kinds[0].Group != GroupName || kinds[0].Kind != "PreviewEnvironmentList" {
		t.Errorf("Unexpected GVK for list type: %v", kinds[0])
	}
}

func TestPreviewEnvironmentKey(t *testing.T) {
	pe := &PreviewEnvironment{}
	pe.Namespace = "default"
	pe.Name = "pe-1"
	if got := pe.Key(); got != "default/pe-1" {
		t.Errorf("Expected key %q, got %q", "default/pe-1", got)
	}

	clusterScoped := &PreviewEnvironment{}
	clusterScoped.Name = "pe-2"
	if got := clusterScoped.Key(); got != "pe-2" {
		t.Errorf("Expected key %q, got %q", "pe-2", got)
	}
}
