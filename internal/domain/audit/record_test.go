package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	records []Record
	err     error
}

func (s *recordingSink) Record(_ context.Context, rec Record) error {
	s.records = append(s.records, rec)
	return s.err
}

func TestFanout(t *testing.T) {
	failing := &recordingSink{err: errors.New("mq down")}
	ok := &recordingSink{}

	err := Fanout(failing, ok).Record(context.Background(), Record{Action: ActionStockAdjusted, EntityID: 1})

	assert.Error(t, err)
	assert.Len(t, failing.records, 1)
	assert.Len(t, ok.records, 1, "前一个Sink失败不影响后续Sink")
}

func TestFanout_AllSucceed(t *testing.T) {
	assert.NoError(t, Fanout(&recordingSink{}, &recordingSink{}).Record(context.Background(), Record{}))
}

func TestActor(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, SystemActor, ActorFrom(ctx))
	assert.Equal(t, SystemActor, ActorFrom(WithActor(ctx, "")))
	assert.Equal(t, "ops-7", ActorFrom(WithActor(ctx, "ops-7")))
}
