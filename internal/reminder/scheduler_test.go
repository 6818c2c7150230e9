package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aion-timer/backend/internal/notify"
	"github.com/aion-timer/backend/internal/observability"
	"github.com/aion-timer/backend/internal/storage/models"
	"github.com/aion-timer/backend/internal/websocket"
)

type recordingBroadcaster struct {
	payloads      []websocket.ScanCompletedPayload
	notifications []string
}

func (r *recordingBroadcaster) BroadcastScanCompleted(p websocket.ScanCompletedPayload) {
	r.payloads = append(r.payloads, p)
}

func (r *recordingBroadcaster) BroadcastNotification(level, title, _ string) {
	r.notifications = append(r.notifications, level+": "+title)
}

func TestScheduler_RunNowBroadcastsReport(t *testing.T) {
	subs := &mockSubs{}
	subs.On("ListActive", mock.Anything).Return([]models.SubscriberWithWatches{
		sub("a", "+5511000000001", "siege"),
	}, nil)
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(notify.Delivery{MessageID: "x"}, nil)

	b := &recordingBroadcaster{}
	s := NewScheduler(newScanner(subs, sender), "@every 1m", b, observability.NewMetrics(prometheus.NewRegistry()), nil)
	s.now = func() time.Time { return saturday(16, 30) }

	report := s.RunNow(context.Background())

	require.True(t, report.Success)
	require.Len(t, b.payloads, 1)
	assert.Equal(t, 1, b.payloads[0].Sent)
	assert.Zero(t, b.payloads[0].Failed)
	assert.True(t, b.payloads[0].Success)
	assert.Empty(t, b.notifications)
}

func TestScheduler_RunNowNotifiesProblems(t *testing.T) {
	tests := []struct {
		name  string
		setup func(subs *mockSubs, sender *mockSender)
		want  []string
	}{
		{
			name: "store failure",
			setup: func(subs *mockSubs, _ *mockSender) {
				subs.On("ListActive", mock.Anything).Return(nil, errors.New("db down"))
			},
			want: []string{"error: Reminder scan failed"},
		},
		{
			name: "undelivered reminder",
			setup: func(subs *mockSubs, sender *mockSender) {
				subs.On("ListActive", mock.Anything).Return([]models.SubscriberWithWatches{
					sub("a", "+5511000000001", "siege"),
				}, nil)
				sender.On("Send", mock.Anything, mock.Anything, mock.Anything).
					Return(notify.Delivery{}, errors.New("rejected"))
			},
			want: []string{"warning: Reminders not delivered"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs, sender := &mockSubs{}, &mockSender{}
			tt.setup(subs, sender)

			b := &recordingBroadcaster{}
			s := NewScheduler(newScanner(subs, sender), "@every 1m", b, nil, nil)
			s.now = func() time.Time { return saturday(16, 30) }

			s.RunNow(context.Background())
			assert.Equal(t, tt.want, b.notifications)
		})
	}
}

func TestScheduler_StopCancelsRunningScan(t *testing.T) {
	subs := &mockSubs{}
	subs.On("ListActive", mock.Anything).Return([]models.SubscriberWithWatches{
		sub("a", "+5511000000001", "siege"),
	}, nil)

	started := make(chan struct{})
	var once sync.Once
	sender := &mockSender{}
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			once.Do(func() { close(started) })
			<-args.Get(0).(context.Context).Done()
		}).
		Return(notify.Delivery{}, context.Canceled)

	s := NewScheduler(newScanner(subs, sender), "@every 1s", nil, nil, nil)
	s.now = func() time.Time { return saturday(16, 30) }
	require.NoError(t, s.Start())

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled scan did not start")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not cancel the running scan")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	subs := &mockSubs{}
	s := NewScheduler(newScanner(subs, &mockSender{}), "@every 1h", nil, nil, nil)

	assert.Nil(t, s.NextRun())
	require.NoError(t, s.Start())
	next := s.NextRun()
	require.NotNil(t, next)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *next, time.Minute)
	s.Stop()
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := NewScheduler(newScanner(&mockSubs{}, &mockSender{}), "every tuesday", nil, nil, nil)
	require.Error(t, s.Start())
}
