// file: pkg/kube/clientset/resource.go

package clientset

import (
	"context"

	metav1 "github.com/fx147/preview-operator/pkg/apis/meta/v1"
	"github.com/fx147/preview-operator/pkg/kube/rest"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/klog/v2"
)

// resourceRef 描述一次操作针对的资源位置。
type resourceRef struct {
	group    string
	version  string
	resource string
}

// applyObject 实现 "create or update" 语义：
//  1. 先尝试 POST 创建。
//  2. 如果对象已存在，GET 拿到当前的 resourceVersion，带着它 PUT。
//
// current 必须是和 obj 同类型的空对象，用于解码 GET 的响应；
// currentMeta 指向 current 的 ObjectMeta，objMeta 指向 obj 的 ObjectMeta。
func applyObject(ctx context.Context, rc rest.Interface, ref resourceRef, namespace string,
	obj interface{}, objMeta *metav1.ObjectMeta, current interface{}, currentMeta *metav1.ObjectMeta) error {

	err := rc.Post().
		Group(ref.group).
		Version(ref.version).
		Namespace(namespace).
		Resource(ref.resource).
		Body(obj).
		Do(ctx).
		Error()
	if err == nil {
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return err
	}

	// 对象已存在，走更新路径。更新必须携带当前的 resourceVersion，
	// 否则 API Server 会拒绝这次写入。
	err = rc.Get().
		Group(ref.group).
		Version(ref.version).
		Namespace(namespace).
		Resource(ref.resource).
		Name(objMeta.Name).
		Do(ctx).
		Into(current)
	if err != nil {
		return err
	}

	objMeta.ResourceVersion = currentMeta.ResourceVersion
	klog.V(4).Infof("Updating existing %s %s/%s (rv=%s)", ref.resource, namespace, objMeta.Name, objMeta.ResourceVersion)

	return rc.Put().
		Group(ref.group).
		Version(ref.version).
		Namespace(namespace).
		Resource(ref.resource).
		Name(objMeta.Name).
		Body(obj).
		Do(ctx).
		Error()
}

// deleteObject 删除一个对象。对象不存在不算错误，保证 Teardown 可以安全重试。
func deleteObject(ctx context.Context, rc rest.Interface, ref resourceRef, namespace, name string) error {
	err := rc.Delete().
		Group(ref.group).
		Version(ref.version).
		Namespace(namespace).
		Resource(ref.resource).
		Name(name).
		Do(ctx).
		Error()
	if err != nil && !apierrors.IsNotFound(err) {
		return err
	}
	return nil
}
