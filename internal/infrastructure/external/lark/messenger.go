package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/port"
)

// Messenger implements port.Notifier with the Lark IM API
type Messenger struct {
	client *SDKClient
	logger *zap.Logger
}

// NewMessenger creates a new Lark message sender
func NewMessenger(client *SDKClient, logger *zap.Logger) *Messenger {
	return &Messenger{
		client: client,
		logger: logger,
	}
}

// SendText sends a plain text message to a user (open_id) or group (chat_id)
func (m *Messenger) SendText(ctx context.Context, receiveIDType, receiveID, text string) error {
	if receiveID == "" {
		return fmt.Errorf("receive id cannot be empty")
	}
	if text == "" {
		return fmt.Errorf("content cannot be empty")
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal message content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType("text").
			Content(string(content)).
			Build()).
		Build()

	resp, err := m.client.GetClient().Im.Message.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", receiveID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Info("Message sent successfully",
		zap.String("receive_id_type", receiveIDType),
		zap.String("receive_id", receiveID),
		zap.String("message_id", messageID))

	return nil
}

// Verify interface compliance
var _ port.Notifier = (*Messenger)(nil)
