// internal/service/keyed_mutex.go
package service

import (
	"context"
	"sync"
)

// keyedMutex はキー単位の排他ロックです。
// 同一 (user, course) に対する更新系操作を直列化するために使う。
// 各キーは容量1のチャネルをセマフォとして持ち、取得待ちは
// コンテキストのキャンセルで中断できる。
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]chan struct{})}
}

func (k *keyedMutex) sem(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.locks[key] = ch
	}
	return ch
}

// Lock はキーのロックを取得し、解放用の関数を返します。
// コンテキストが先にキャンセルされた場合はロックを取得せずエラーを返す。
func (k *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	ch := k.sem(key)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
