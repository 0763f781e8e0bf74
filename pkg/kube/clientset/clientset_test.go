package clientset

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	pometav1 "github.com/fx147/preview-operator/pkg/apis/meta/v1"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// fakeAPIServer 是一个只认识 Deployment 的极简 API Server，
// 行为上模仿 Kubernetes：创建重名对象返回 409 AlreadyExists，
// 更新缺少 resourceVersion 返回 409 Conflict，UID 由服务端分配。
type fakeAPIServer struct {
	mu      sync.Mutex
	objects map[string]*Deployment
	nextRV  int

	puts    int
	deletes int
}

func newFakeAPIServer() *fakeAPIServer {
	return &fakeAPIServer{
		objects: make(map[string]*Deployment),
		nextRV:  1,
	}
}

func (s *fakeAPIServer) writeStatus(w http.ResponseWriter, code int, reason metav1.StatusReason, msg string) {
	status := metav1.Status{
		TypeMeta: metav1.TypeMeta{Kind: "Status", APIVersion: "v1"},
		Status:   metav1.StatusFailure,
		Code:     int32(code),
		Reason:   reason,
		Message:  msg,
	}
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

func (s *fakeAPIServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		require.True(t, strings.HasPrefix(r.URL.Path, "/apis/apps/v1/namespaces/default/deployments"),
			"unexpected path %s", r.URL.Path)
		name := strings.TrimPrefix(r.URL.Path, "/apis/apps/v1/namespaces/default/deployments")
		name = strings.TrimPrefix(name, "/")

		switch r.Method {
		case http.MethodPost:
			obj := &Deployment{}
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, obj))
			if _, exists := s.objects[obj.Name]; exists {
				s.writeStatus(w, http.StatusConflict, metav1.StatusReasonAlreadyExists, "already exists")
				return
			}
			obj.UID = uuid.NewString()
			obj.ResourceVersion = s.bumpRV()
			s.objects[obj.Name] = obj
			json.NewEncoder(w).Encode(obj)

		case http.MethodGet:
			obj, exists := s.objects[name]
			if !exists {
				s.writeStatus(w, http.StatusNotFound, metav1.StatusReasonNotFound, "not found")
				return
			}
			json.NewEncoder(w).Encode(obj)

		case http.MethodPut:
			s.puts++
			existing, exists := s.objects[name]
			if !exists {
				s.writeStatus(w, http.StatusNotFound, metav1.StatusReasonNotFound, "not found")
				return
			}
			obj := &Deployment{}
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, obj))
			if obj.ResourceVersion != existing.ResourceVersion {
				s.writeStatus(w, http.StatusConflict, metav1.StatusReasonConflict, "resourceVersion mismatch")
				return
			}
			obj.UID = existing.UID
			obj.ResourceVersion = s.bumpRV()
			s.objects[name] = obj
			json.NewEncoder(w).Encode(obj)

		case http.MethodDelete:
			s.deletes++
			if _, exists := s.objects[name]; !exists {
				s.writeStatus(w, http.StatusNotFound, metav1.StatusReasonNotFound, "not found")
				return
			}
			delete(s.objects, name)
			w.Write([]byte(`{}`))
		}
	}
}

func (s *fakeAPIServer) bumpRV() string {
	s.nextRV++
	return strconv.Itoa(s.nextRV)
}

func newTestClientset(t *testing.T, handler http.HandlerFunc) *Clientset {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cs, err := NewClientset(server.URL, "", nil)
	require.NoError(t, err)
	return cs
}

func testDeployment(name, image string) *Deployment {
	replicas := int32(1)
	return &Deployment{
		ObjectMeta: pometav1.ObjectMeta{Name: name},
		Spec: DeploymentSpec{
			Replicas: &replicas,
			Selector: LabelSelector{MatchLabels: map[string]string{"app": name}},
			Template: PodTemplateSpec{
				Spec: PodSpec{Containers: []Container{{Name: name, Image: image}}},
			},
		},
	}
}

func TestDeploymentApply_CreatesThenUpdates(t *testing.T) {
	api := newFakeAPIServer()
	cs := newTestClientset(t, api.handler(t))
	deployments := cs.Deployments("default")
	ctx := context.Background()

	// 第一次 Apply：创建
	require.NoError(t, deployments.Apply(ctx, testDeployment("pe-1-deployment", "x:latest")))
	assert.Equal(t, 0, api.puts)
	assert.Equal(t, "x:latest", api.objects["pe-1-deployment"].Spec.Template.Spec.Containers[0].Image)

	// 第二次 Apply：走 GET+PUT 更新路径，并且带上了服务端的 resourceVersion
	require.NoError(t, deployments.Apply(ctx, testDeployment("pe-1-deployment", "x:v2")))
	assert.Equal(t, 1, api.puts)
	assert.Equal(t, "x:v2", api.objects["pe-1-deployment"].Spec.Template.Spec.Containers[0].Image)
}

func TestDeploymentDelete_ToleratesNotFound(t *testing.T) {
	api := newFakeAPIServer()
	cs := newTestClientset(t, api.handler(t))
	deployments := cs.Deployments("default")
	ctx := context.Background()

	require.NoError(t, deployments.Apply(ctx, testDeployment("pe-1-deployment", "x:latest")))
	require.NoError(t, deployments.Delete(ctx, "pe-1-deployment"))

	// 再删一次：对象已不存在，但 Delete 仍然返回 nil，保证 Teardown 可重试
	require.NoError(t, deployments.Delete(ctx, "pe-1-deployment"))
	assert.Equal(t, 2, api.deletes)
}

func TestPreviewEnvironments_List(t *testing.T) {
	cs := newTestClientset(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apis/platform9.com/v1/namespaces/default/previewenvironments", r.URL.Path)
		io.WriteString(w, `{
			"apiVersion": "platform9.com/v1",
			"kind": "PreviewEnvironmentList",
			"metadata": {"resourceVersion": "42"},
			"items": [
				{"metadata": {"name": "pe-1", "namespace": "default", "resourceVersion": "5"},
				 "spec": {"image": "x:latest", "fqdn": "a.com"}}
			]
		}`)
	})

	list, err := cs.PreviewEnvironments("default").List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", list.ResourceVersion)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "default/pe-1", list.Items[0].Key())
	assert.Equal(t, "x:latest", list.Items[0].Spec.Image)
}

func TestPreviewEnvironments_WatchDecodesFrames(t *testing.T) {
	cs := newTestClientset(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("watch"))
		assert.Equal(t, "42", r.URL.Query().Get("resourceVersion"))
		io.WriteString(w, `{"type":"ADDED","object":{"metadata":{"name":"pe-1","namespace":"default","resourceVersion":"43"},"spec":{"image":"x:latest","fqdn":"a.com"}}}`+"\n")
		io.WriteString(w, `{"type":"DELETED","object":{"metadata":{"name":"pe-1","namespace":"default","resourceVersion":"44"}}}`+"\n")
	})

	stream, err := cs.PreviewEnvironments("default").Watch(context.Background(), "42")
	require.NoError(t, err)
	defer stream.Close()

	frame, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "ADDED", frame.Type)

	frame, err = stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "DELETED", frame.Type)

	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
}
