// internal/service/keyed_mutex_test.go
package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_keyedMutex_Lock(t *testing.T) {
	t.Run("正常系: 同一キーの並行アクセスが直列化される", func(t *testing.T) {
		km := newKeyedMutex()
		ctx := context.Background()

		var (
			mu      sync.Mutex
			active  int
			maxSeen int
		)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := km.Lock(ctx, "user1|1")
				if !assert.NoError(t, err) {
					return
				}
				defer unlock()

				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, maxSeen)
	})

	t.Run("正常系: 異なるキー同士はブロックしない", func(t *testing.T) {
		km := newKeyedMutex()
		ctx := context.Background()

		unlock1, err := km.Lock(ctx, "user1|1")
		require.NoError(t, err)
		defer unlock1()

		// 別キーのロックは即座に取れる
		done := make(chan struct{})
		go func() {
			unlock2, err := km.Lock(ctx, "user1|2")
			assert.NoError(t, err)
			unlock2()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("lock on a different key should not block")
		}
	})

	t.Run("異常系: 取得待ち中のキャンセルでエラーが返る", func(t *testing.T) {
		km := newKeyedMutex()

		unlock, err := km.Lock(context.Background(), "user1|1")
		require.NoError(t, err)
		defer unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err = km.Lock(ctx, "user1|1")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
