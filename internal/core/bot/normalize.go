package bot

import "strings"

// Meta webhook 載荷結構，只宣告會用到的欄位

type WebhookPayload struct {
	Entry []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Value webhookValue `json:"value"`
}

type webhookValue struct {
	Messages []webhookMessage `json:"messages"`
}

type webhookMessage struct {
	ID          string              `json:"id"`
	From        string              `json:"from"`
	Type        string              `json:"type"`
	Text        *webhookText        `json:"text"`
	Interactive *webhookInteractive `json:"interactive"`
	Image       *webhookImage       `json:"image"`
}

type webhookText struct {
	Body string `json:"body"`
}

type webhookInteractive struct {
	Type        string        `json:"type"`
	ButtonReply *webhookReply `json:"button_reply"`
	ListReply   *webhookReply `json:"list_reply"`
}

type webhookReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type webhookImage struct {
	ID      string `json:"id"`
	Caption string `json:"caption"`
}

// NormalizeEvents 把 webhook 載荷攤平成事件串。
// 缺少發送者或空白文字的訊息直接略過，不認得的型別同樣略過。
func NormalizeEvents(payload *WebhookPayload) []IncomingEvent {
	var events []IncomingEvent
	if payload == nil {
		return events
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, message := range change.Value.Messages {
				if message.From == "" {
					continue
				}
				switch message.Type {
				case "text":
					if message.Text == nil {
						continue
					}
					body := strings.TrimSpace(message.Text.Body)
					if body == "" {
						continue
					}
					events = append(events, IncomingEvent{
						MessageID: message.ID,
						Sender:    message.From,
						Type:      "text",
						Text:      body,
					})
				case "interactive":
					if message.Interactive == nil {
						continue
					}
					var reply *webhookReply
					switch message.Interactive.Type {
					case "button_reply":
						reply = message.Interactive.ButtonReply
					case "list_reply":
						reply = message.Interactive.ListReply
					}
					if reply == nil {
						continue
					}
					events = append(events, IncomingEvent{
						MessageID:   message.ID,
						Sender:      message.From,
						Type:        "button",
						Text:        reply.Title,
						ButtonID:    reply.ID,
						ButtonTitle: reply.Title,
					})
				case "image":
					if message.Image == nil {
						continue
					}
					events = append(events, IncomingEvent{
						MessageID: message.ID,
						Sender:    message.From,
						Type:      "image",
						Text:      strings.TrimSpace(message.Image.Caption),
						MediaID:   message.Image.ID,
						MediaType: "image",
					})
				}
			}
		}
	}
	return events
}
