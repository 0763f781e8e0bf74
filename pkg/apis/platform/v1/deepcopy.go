// file: pkg/apis/platform/v1/deepcopy.go

// 手写的 DeepCopy 实现。对象很小，暂时不值得引入 deepcopy-gen 的代码生成流程。

package v1

import "k8s.io/apimachinery/pkg/runtime"

// DeepCopyInto 将接收者深拷贝到 out 中。
func (pe *PreviewEnvironment) DeepCopyInto(out *PreviewEnvironment) {
	*out = *pe
	if pe.Labels != nil {
		out.Labels = make(map[string]string, len(pe.Labels))
		for k, v := range pe.Labels {
			out.Labels[k] = v
		}
	}
	if pe.Annotations != nil {
		out.Annotations = make(map[string]string, len(pe.Annotations))
		for k, v := range pe.Annotations {
			out.Annotations[k] = v
		}
	}
	if pe.DeletionTimestamp != nil {
		ts := *pe.DeletionTimestamp
		out.DeletionTimestamp = &ts
	}
}

// DeepCopy 返回接收者的一个深拷贝。
func (pe *PreviewEnvironment) DeepCopy() *PreviewEnvironment {
	if pe == nil {
		return nil
	}
	out := new(PreviewEnvironment)
	pe.DeepCopyInto(out)
	return out
}

// DeepCopyObject 实现了 runtime.Object 接口。
func (pe *PreviewEnvironment) DeepCopyObject() runtime.Object {
	return pe.DeepCopy()
}

// DeepCopy 返回列表的一个深拷贝。
func (l *PreviewEnvironmentList) DeepCopy() *PreviewEnvironmentList {
	if l == nil {
		return nil
	}
	out := new(PreviewEnvironmentList)
	*out = *l
	if l.Items != nil {
		out.Items = make([]PreviewEnvironment, len(l.Items))
		for i := range l.Items {
			l.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
	return out
}

// DeepCopyObject 实现了 runtime.Object 接口。
func (l *PreviewEnvironmentList) DeepCopyObject() runtime.Object {
	return l.DeepCopy()
}
