// Package linksremover runs the background batch deletion of links.
// Handlers enqueue (owner, link ID) tasks and answer immediately; the
// remover groups queued tasks by owner and flushes them to storage on a
// timer.
package linksremover

import (
	"context"
	"time"

	"github.com/patric-chuzhbe/linknest/internal/logger"
	"github.com/patric-chuzhbe/linknest/internal/models"
)

type linksBatchRemover interface {
	RemoveUsersLinks(ctx context.Context, usersLinks map[string][]string) error
}

type task struct {
	owner        string
	linkToDelete string
}

// LinksRemover owns the deletion queue and the flush loop.
type LinksRemover struct {
	queue                    chan *task
	db                       linksBatchRemover
	delayBetweenQueueFetches time.Duration
	errorChannel             chan error
}

func New(
	db linksBatchRemover,
	channelCapacity int,
	delayBetweenQueueFetches time.Duration,
) *LinksRemover {
	return &LinksRemover{
		db:                       db,
		queue:                    make(chan *task, channelCapacity),
		delayBetweenQueueFetches: delayBetweenQueueFetches,
		errorChannel:             make(chan error, channelCapacity),
	}
}

// ListenErrors forwards flush errors to the callback on a separate goroutine.
func (r *LinksRemover) ListenErrors(callback func(error)) {
	go func() {
		for err := range r.errorChannel {
			callback(err)
		}
	}()
}

func (r *LinksRemover) collectLinksByOwner(tasks []task) map[string][]string {
	result := map[string][]string{}
	for _, t := range tasks {
		result[t.owner] = append(result[t.owner], t.linkToDelete)
	}

	return result
}

// Run starts the flush loop. It drains queued tasks on every tick and
// stops when ctx is cancelled; tasks still queued at that point are lost,
// which is acceptable for deletions the owner can reissue.
func (r *LinksRemover) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.delayBetweenQueueFetches)
		defer ticker.Stop()

		var tasks []task

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-r.queue:
				tasks = append(tasks, *t)
			case <-ticker.C:
				if len(tasks) == 0 {
					continue
				}
				err := r.db.RemoveUsersLinks(ctx, r.collectLinksByOwner(tasks))
				if err != nil {
					r.errorChannel <- err
					continue
				}
				logger.Log.Infof("processed removing of %d links", len(tasks))
				tasks = nil
			}
		}
	}()
}

// EnqueueJob splits a deletion job into per-link tasks and queues them.
// Blocks when the queue is full, applying backpressure to the handler.
func (r *LinksRemover) EnqueueJob(job *models.LinkDeleteJob) {
	for _, linkID := range job.LinksToDelete {
		r.queue <- &task{
			owner:        job.Owner,
			linkToDelete: linkID,
		}
	}
}
