package action

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rock-id/api/internal/events"
	"rock-id/api/internal/store"
)

// ctxPublisher отказывает, если контекст уже завершён, как и MQTTPublisher.
type ctxPublisher struct{ evs []events.Event }

func (p *ctxPublisher) Publish(ctx context.Context, ev events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.evs = append(p.evs, ev)
	return nil
}
func (p *ctxPublisher) Close() {}

func TestTimedOutAttemptIsStillRecorded(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec(regexp.QuoteMeta("insert into identifications")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	history := store.NewHistory(store.NewIdentificationRepo(db), nil, nil)
	pub := &ctxPublisher{}

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	a := New(&fakeIdentifier{err: ctx.Err()}, Deps{Recorder: history, Publisher: pub})
	res := a.IdentifyRock(ctx, pngURI)

	assert.False(t, res.Success)
	assert.Equal(t, context.DeadlineExceeded.Error(), res.Error)
	assert.NotEmpty(t, res.RecordID)
	require.Len(t, pub.evs, 1)
	assert.False(t, pub.evs[0].Success)
	assert.Equal(t, res.RecordID, pub.evs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelledAttemptIsStillPublished(t *testing.T) {
	rec := &memRecorder{}
	pub := &ctxPublisher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(&fakeIdentifier{err: context.Canceled}, Deps{Recorder: rec, Publisher: pub}).IdentifyRock(ctx, pngURI)
	assert.Equal(t, context.Canceled.Error(), res.Error)
	require.Len(t, rec.recs, 1)
	assert.Equal(t, context.Canceled.Error(), rec.recs[0].Error)
	assert.Len(t, pub.evs, 1)
}
