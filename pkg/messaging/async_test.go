package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingPublisher struct {
	mu  sync.Mutex
	ids []int64
}

func (r *recordingPublisher) PublishCampaignSaved(ctx context.Context, msg CampaignSavedMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, msg.ID)
	if msg.ID == 2 {
		return errors.New("broker hiccup")
	}
	return nil
}

func TestAsyncPublisherFlushesOnClose(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewAsyncPublisher(rec)
	for id := int64(1); id <= 3; id++ {
		if err := p.PublishCampaignSaved(context.Background(), CampaignSavedMessage{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Close(ctx); err != nil {
		t.Fatal(err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.ids) != 3 || rec.ids[0] != 1 || rec.ids[2] != 3 {
		t.Errorf("unexpected publish order %v", rec.ids)
	}
	if err := p.PublishCampaignSaved(context.Background(), CampaignSavedMessage{ID: 4}); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("expected closed error, got %v", err)
	}
}
