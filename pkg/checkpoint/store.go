// file: pkg/checkpoint/store.go

package checkpoint

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	// _tokensBucketKey 是存放各资源续传令牌的 bucket。
	_tokensBucketKey = []byte("resume_tokens")
)

// Store 用 bbolt 持久化每种资源最近观察到的 resourceVersion。
// 这纯粹是一个重启优化：令牌丢失或过期时，adapter 会退回全量 resync，
// 对象状态本身从不落盘。
type Store struct {
	db *bolt.DB
}

// Open 打开（必要时创建）给定路径上的存储。
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(_tokensBucketKey)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close 关闭底层数据库。
func (s *Store) Close() error {
	return s.db.Close()
}

// Save 记录 resource 的续传令牌。
func (s *Store) Save(resource, version string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(_tokensBucketKey).Put([]byte(resource), []byte(version))
	})
}

// Load 返回 resource 的续传令牌。没有记录时返回空字符串。
func (s *Store) Load(resource string) (string, error) {
	var version string
	err := s.db.View(func(tx *bolt.Tx) error {
		if value := tx.Bucket(_tokensBucketKey).Get([]byte(resource)); value != nil {
			version = string(value)
		}
		return nil
	})
	return version, err
}

// ResourceTokens 是绑定到单个资源的视图，满足 watch.ResumeTokenStore。
type ResourceTokens struct {
	store    *Store
	resource string
}

// ForResource 返回绑定到 resource 的令牌视图。
func (s *Store) ForResource(resource string) *ResourceTokens {
	return &ResourceTokens{store: s, resource: resource}
}

func (t *ResourceTokens) Load() (string, error) {
	return t.store.Load(t.resource)
}

func (t *ResourceTokens) Save(version string) error {
	return t.store.Save(t.resource, version)
}
