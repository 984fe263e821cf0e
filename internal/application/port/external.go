package port

import (
	"context"
	"errors"
	"io"

	"github.com/garyjia/expense-claims/internal/domain/entity"
)

// ErrUnreadableDocument is returned by DocumentInspector when the content
// claims a known type but cannot be parsed as one
var ErrUnreadableDocument = errors.New("unreadable document")

// DocumentInfo is what content inspection learned about an upload
type DocumentInfo struct {
	MIMEType  string
	Extension string
	PageCount int
}

// DocumentInspector sniffs uploaded bytes and verifies document structure
type DocumentInspector interface {
	Inspect(ctx context.Context, content []byte) (*DocumentInfo, error)
}

// Receive ID types understood by Notifier
const (
	ReceiveIDTypeOpenID = "open_id"
	ReceiveIDTypeChatID = "chat_id"
)

// Notifier sends plain text messages to a chat or user
type Notifier interface {
	SendText(ctx context.Context, receiveIDType, receiveID, text string) error
}

// ClaimExporter renders claim rows into a spreadsheet
type ClaimExporter interface {
	WriteClaims(w io.Writer, rows []*entity.ClaimSummary) error
}

// Directory is a snapshot of reference data to import
type Directory struct {
	Employees  []*entity.Employee
	EventTypes []*entity.EventType
}

// DirectoryReader parses a directory snapshot from a stream
type DirectoryReader interface {
	ReadDirectory(r io.Reader) (*Directory, error)
}
