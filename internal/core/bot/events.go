package bot

import "context"

// IncomingEvent 正規化後的入站事件，來源是 Meta webhook 載荷
type IncomingEvent struct {
	MessageID   string
	Sender      string
	Type        string // text / button / image
	Text        string
	ButtonID    string
	ButtonTitle string
	MediaID     string
	MediaType   string
}

// Button 互動按鈕
type Button struct {
	ID    string
	Title string
}

// OutgoingMessage 待發送的單則出站訊息
type OutgoingMessage struct {
	Text    string
	Buttons []Button
}

// Sender 出站訊息的發送介面，由 WhatsApp 客戶端實作
type Sender interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, buttons []Button) error
}

// MediaFetcher 媒體下載介面
type MediaFetcher interface {
	DownloadMedia(ctx context.Context, mediaID string) ([]byte, error)
}
