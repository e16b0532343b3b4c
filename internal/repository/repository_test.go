package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/models"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/cache"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
)

// forEachCache runs fn against the in-memory cache and against redis.
func forEachCache(t *testing.T, fn func(t *testing.T, c cache.Cache)) {
	t.Run("memory", func(t *testing.T) {
		c := cache.NewMemoryCache(time.Minute)
		t.Cleanup(c.Close)
		fn(t, c)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { cli.Close() })
		fn(t, cache.NewRedisCache(cli))
	})
}

func TestPresenceRepository(t *testing.T) {
	forEachCache(t, func(t *testing.T, c cache.Cache) {
		ctx := context.Background()
		repo := NewPresenceRepository(c, logger.InitializeTestZapLogger())

		_, err := repo.Get(ctx, "u1")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, repo.Set(ctx, models.PresenceRecord{UserID: "u1", Status: models.PresenceIdle}, time.Minute))
		rec, err := repo.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, models.PresenceIdle, rec.Status)

		require.NoError(t, repo.Delete(ctx, "u1"))
		_, err = repo.Get(ctx, "u1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestVoiceRepositoryLockstep(t *testing.T) {
	forEachCache(t, func(t *testing.T, c cache.Cache) {
		ctx := context.Background()
		repo := NewVoiceRepository(c, logger.InitializeTestZapLogger())

		require.NoError(t, repo.AddMember(ctx, models.VoiceMemberState{ChannelID: "v", UserID: "a"}, time.Hour))
		require.NoError(t, repo.AddMember(ctx, models.VoiceMemberState{ChannelID: "v", UserID: "b"}, time.Hour))

		members, err := repo.Members(ctx, "v")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, members)

		left, err := repo.RemoveMember(ctx, "v", "a")
		require.NoError(t, err)
		assert.EqualValues(t, 1, left)

		_, err = repo.GetState(ctx, "v", "a")
		assert.ErrorIs(t, err, ErrNotFound)

		state, err := repo.GetState(ctx, "v", "b")
		require.NoError(t, err)
		assert.Equal(t, "b", state.UserID)
	})
}

func TestMusicRepositoryHistoryIsCapped(t *testing.T) {
	forEachCache(t, func(t *testing.T, c cache.Cache) {
		ctx := context.Background()
		repo := NewMusicRepository(c, logger.InitializeTestZapLogger())

		for i := range 5 {
			require.NoError(t, repo.PushHistory(ctx, "c", models.Track{Title: fmt.Sprintf("t%d", i)}, 3))
		}

		var got []string
		for {
			tr, err := repo.PopHistory(ctx, "c")
			if err != nil {
				assert.ErrorIs(t, err, ErrNotFound)
				break
			}
			got = append(got, tr.Title)
		}
		assert.Equal(t, []string{"t4", "t3", "t2"}, got)
	})
}

func TestMusicRepositoryQueueOrder(t *testing.T) {
	forEachCache(t, func(t *testing.T, c cache.Cache) {
		ctx := context.Background()
		repo := NewMusicRepository(c, logger.InitializeTestZapLogger())

		require.NoError(t, repo.PushQueue(ctx, "c", models.Track{Title: "b"}, models.Track{Title: "c"}))
		require.NoError(t, repo.PushQueueFront(ctx, "c", models.Track{Title: "a"}))

		q, err := repo.GetQueue(ctx, "c")
		require.NoError(t, err)
		require.Len(t, q, 3)
		assert.Equal(t, "a", q[0].Title)
		assert.Equal(t, "c", q[2].Title)

		head, err := repo.PopQueue(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, "a", head.Title)

		status, err := repo.GetStatus(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, models.LoopOff, status.LoopMode)

		cur, err := repo.GetCurrent(ctx, "c")
		require.NoError(t, err)
		assert.Nil(t, cur)
	})
}

func TestLockRepository(t *testing.T) {
	forEachCache(t, func(t *testing.T, c cache.Cache) {
		ctx := context.Background()
		repo := NewLockRepository(c, logger.InitializeTestZapLogger())

		token, err := repo.Acquire(ctx, "lock", time.Second, 0)
		require.NoError(t, err)

		_, err = repo.Acquire(ctx, "lock", time.Second, 50*time.Millisecond)
		assert.ErrorIs(t, err, ErrLockNotAcquired)

		require.NoError(t, repo.Release(ctx, "lock", "someone-else"))
		_, err = repo.Acquire(ctx, "lock", time.Second, 0)
		assert.ErrorIs(t, err, ErrLockNotAcquired)

		require.NoError(t, repo.Release(ctx, "lock", token))
		_, err = repo.Acquire(ctx, "lock", time.Second, 0)
		assert.NoError(t, err)
	})
}
