package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"busticket/internal/domain/models"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []models.SeatAvailability {
	return []models.SeatAvailability{
		{ID: 1, ScheduleID: 9, SeatID: 11, SeatNumber: "1A", Deck: models.DeckLower, Status: models.SeatAvailable, PriceCents: 4500},
		{ID: 2, ScheduleID: 9, SeatID: 12, SeatNumber: "1B", Deck: models.DeckLower, Status: models.SeatBooked, PriceCents: 4500},
	}
}

func TestSeatMapLoadHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewSeatMap(client, time.Second)

	data, err := json.Marshal(sampleRows())
	require.NoError(t, err)
	mock.ExpectGet(Key(9)).SetVal(string(data))

	rows, err := c.Load(context.Background(), 9, func(context.Context) ([]models.SeatAvailability, error) {
		t.Fatal("loader must not run on a hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, models.SeatBooked, rows[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatMapLoadMissStores(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewSeatMap(client, time.Second)

	rows := sampleRows()
	data, err := json.Marshal(rows)
	require.NoError(t, err)
	mock.ExpectGet(Key(9)).RedisNil()
	mock.ExpectSet(Key(9), data, time.Second).SetVal("OK")

	calls := 0
	got, err := c.Load(context.Background(), 9, func(context.Context) ([]models.SeatAvailability, error) {
		calls++
		return rows, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, rows, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatMapLoadErrorNotCached(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewSeatMap(client, time.Second)

	mock.ExpectGet(Key(3)).RedisNil()

	_, err := c.Load(context.Background(), 3, func(context.Context) ([]models.SeatAvailability, error) {
		return nil, errors.New("db down")
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatMapRedisDownFallsBack(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewSeatMap(client, time.Second)

	mock.ExpectGet(Key(4)).SetErr(errors.New("connection refused"))

	got, err := c.Load(context.Background(), 4, func(context.Context) ([]models.SeatAvailability, error) {
		return sampleRows(), nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSeatMapInvalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewSeatMap(client, time.Second)

	mock.ExpectDel(Key(1), Key(2)).SetVal(2)
	c.Invalidate(context.Background(), 1, 2)
	c.Invalidate(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatMapLoadOutlivesCallerCancel(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewSeatMap(client, time.Second)

	rows := sampleRows()
	data, err := json.Marshal(rows)
	require.NoError(t, err)
	mock.ExpectGet(Key(9)).RedisNil()
	mock.ExpectSet(Key(9), data, time.Second).SetVal("OK")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got, err := c.Load(ctx, 9, func(lctx context.Context) ([]models.SeatAvailability, error) {
		cancel()
		if err := lctx.Err(); err != nil {
			return nil, err
		}
		_, hasDeadline := lctx.Deadline()
		assert.True(t, hasDeadline)
		return rows, nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
