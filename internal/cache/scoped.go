// internal/cache/scoped.go
package cache

import (
	"strings"

	"github.com/google/uuid"
)

// userScopedStore は共有ストアの上にユーザーごとの名前空間を被せる Store です。
// レガシーなキー文法（Course{c}Unidad{u} など）は Store の境界ではそのまま使え、
// 物理キーにだけユーザープレフィックスが付く。あるユーザーの全面同期や
// ログアウトが他ユーザーのミラーに触れないことを保証する。
type userScopedStore struct {
	base   Store
	prefix string
}

// ForUser は base をユーザー単位に区切ったビューを返します。
func ForUser(base Store, userID uuid.UUID) Store {
	return &userScopedStore{base: base, prefix: "user:" + userID.String() + ":"}
}

func (s *userScopedStore) GetItem(key string) (string, bool) {
	return s.base.GetItem(s.prefix + key)
}

func (s *userScopedStore) SetItem(key, value string) error {
	return s.base.SetItem(s.prefix+key, value)
}

func (s *userScopedStore) RemoveItem(key string) error {
	return s.base.RemoveItem(s.prefix + key)
}

// Keys は自ユーザーのキーだけを、プレフィックスを剥がした論理キーで返します。
func (s *userScopedStore) Keys() ([]string, error) {
	all, err := s.base.Keys()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(all))
	for _, k := range all {
		if strings.HasPrefix(k, s.prefix) {
			keys = append(keys, strings.TrimPrefix(k, s.prefix))
		}
	}
	return keys, nil
}
