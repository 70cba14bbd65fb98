package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MrJamesThe3rd/fiado/internal/notify"
)

func TestSender_Send(t *testing.T) {
	req := notify.Request{
		Recipient:  "ana@example.com",
		TemplateID: notify.TemplateSaleReceipt,
		Variables:  map[string]string{"total": "80.00"},
	}

	type testCase struct {
		name      string
		req       notify.Request
		setupMock func(m *notify.MockNotifier)
		wantWarns int
	}

	tests := []testCase{
		{
			name: "Delivered",
			req:  req,
			setupMock: func(m *notify.MockNotifier) {
				m.EXPECT().Notify(gomock.Any(), req).Return(nil)
			},
		},
		{
			name: "NoRecipientSkipped",
			req:  notify.Request{TemplateID: notify.TemplatePaymentReceipt},
		},
		{
			name: "FailureLogged",
			req:  req,
			setupMock: func(m *notify.MockNotifier) {
				m.EXPECT().Notify(gomock.Any(), req).Return(errors.New("redis down"))
			},
			wantWarns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			n := notify.NewMockNotifier(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(n)
			}

			core, logs := observer.New(zapcore.WarnLevel)
			notify.NewSender(n, zap.New(core), nil).Send(context.Background(), tt.req)

			assert.Equal(t, tt.wantWarns, logs.Len())
		})
	}
}

func TestJobEnvelope(t *testing.T) {
	req := notify.Request{
		Recipient:  "ana@example.com",
		TemplateID: notify.TemplatePaymentReceipt,
		Variables:  map[string]string{"amount": "50.00", "balance": "30.00"},
	}

	data, err := notify.EncodeJob(req)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"email"`)

	got, err := notify.DecodeJob(data)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestDecodeJob_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "NotJSON", data: "nope"},
		{name: "WrongType", data: `{"type":"facturacion","payload":{}}`},
		{name: "BadPayload", data: `{"type":"email","payload":"string"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := notify.DecodeJob([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	err := notify.NewLogNotifier(zap.New(core)).Notify(context.Background(), notify.Request{Recipient: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.Len())
}
