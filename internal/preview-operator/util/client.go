// file: internal/preview-operator/util/client.go

package util

import (
	"fmt"

	"github.com/fx147/preview-operator/pkg/kube/clientset"
	"github.com/spf13/viper"
)

// NewClientsetFromFlags 从 viper 中读取全局标志，并创建一个新的 Clientset。
// 注意这里不给 http.Client 设置超时：watch 是长连接，
// 客户端超时会把正常的流当成错误掐断。
func NewClientsetFromFlags() (*clientset.Clientset, error) {
	server := viper.GetString("server")
	if server == "" {
		return nil, fmt.Errorf("the API server address must be specified (--server)")
	}
	token := viper.GetString("token")

	return clientset.NewClientset(server, token, nil)
}
