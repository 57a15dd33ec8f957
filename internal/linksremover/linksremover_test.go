package linksremover

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/linknest/internal/db/memorystorage"
	"github.com/patric-chuzhbe/linknest/internal/link"
	"github.com/patric-chuzhbe/linknest/internal/logger"
	"github.com/patric-chuzhbe/linknest/internal/models"
)

type failingBatchRemover struct {
	calls atomic.Int64
}

func (f *failingBatchRemover) RemoveUsersLinks(ctx context.Context, usersLinks map[string][]string) error {
	f.calls.Add(1)

	return errors.New("storage is down")
}

func TestRunFlushesQueuedTasks(t *testing.T) {
	require.NoError(t, logger.Init("debug"))

	db, err := memorystorage.New()
	require.NoError(t, err)

	for _, lnk := range []*link.Link{
		{ID: "alice-1", Owner: "alice", Title: "One", URL: "https://example.com/1"},
		{ID: "alice-2", Owner: "alice", Title: "Two", URL: "https://example.com/2"},
		{ID: "bob-1", Owner: "bob", Title: "Bob's", URL: "https://example.com/bob"},
	} {
		_, err := db.CreateLink(context.Background(), lnk, nil)
		require.NoError(t, err)
	}

	remover := New(db, 10, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	remover.Run(ctx)

	// Alice deletes her links and names bob's too; the storage-level owner
	// check must leave bob's in place.
	remover.EnqueueJob(&models.LinkDeleteJob{
		Owner:         "alice",
		LinksToDelete: models.DeleteLinksRequest{"alice-1", "alice-2", "bob-1"},
	})

	require.Eventually(
		t,
		func() bool {
			aliceLinks, err := db.GetUserLinks(context.Background(), "alice")

			return err == nil && len(aliceLinks) == 0
		},
		2*time.Second,
		10*time.Millisecond,
	)

	bobLinks, err := db.GetUserLinks(context.Background(), "bob")
	require.NoError(t, err)
	assert.Len(t, bobLinks, 1)
}

func TestListenErrorsForwardsFlushErrors(t *testing.T) {
	require.NoError(t, logger.Init("debug"))

	db := &failingBatchRemover{}
	remover := New(db, 10, 10*time.Millisecond)

	var reportedErrors atomic.Int64
	remover.ListenErrors(func(err error) {
		assert.Error(t, err)
		reportedErrors.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	remover.Run(ctx)

	remover.EnqueueJob(&models.LinkDeleteJob{
		Owner:         "alice",
		LinksToDelete: models.DeleteLinksRequest{"some-link"},
	})

	require.Eventually(
		t,
		func() bool {
			return reportedErrors.Load() > 0
		},
		2*time.Second,
		10*time.Millisecond,
	)

	assert.GreaterOrEqual(t, db.calls.Load(), int64(1))
}

func TestStopDrainsNothingAfterCancel(t *testing.T) {
	require.NoError(t, logger.Init("debug"))

	db, err := memorystorage.New()
	require.NoError(t, err)

	_, err = db.CreateLink(
		context.Background(),
		&link.Link{ID: "alice-1", Owner: "alice", Title: "One", URL: "https://example.com/1"},
		nil,
	)
	require.NoError(t, err)

	remover := New(db, 10, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	remover.Run(ctx)
	cancel()

	// Give the loop a moment to observe the cancellation, then enqueue.
	time.Sleep(50 * time.Millisecond)
	remover.EnqueueJob(&models.LinkDeleteJob{
		Owner:         "alice",
		LinksToDelete: models.DeleteLinksRequest{"alice-1"},
	})
	time.Sleep(100 * time.Millisecond)

	links, err := db.GetUserLinks(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, links, 1, "a stopped remover must not touch storage")
}
