package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"anoa.com/yogaschool/internal/entity"
)

type memoryAttachmentRepository struct {
	mu     sync.Mutex
	nextID uint
	items  map[uint]entity.Attachment
}

func NewMemoryAttachmentRepository() AttachmentRepository {
	return &memoryAttachmentRepository{items: make(map[uint]entity.Attachment)}
}

func (r *memoryAttachmentRepository) Create(ctx context.Context, attachment *entity.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	attachment.ID = r.nextID
	if attachment.CreatedAt.IsZero() {
		attachment.CreatedAt = time.Now()
	}
	r.items[attachment.ID] = *attachment
	return nil
}

func (r *memoryAttachmentRepository) FindCreatedBefore(ctx context.Context, cutoff time.Time) ([]entity.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found []entity.Attachment
	for _, a := range r.items {
		if a.CreatedAt.Before(cutoff) {
			found = append(found, a)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found, nil
}

func (r *memoryAttachmentRepository) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, id)
	return nil
}
