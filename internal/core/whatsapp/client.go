package whatsapp

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"offramp-assistant/internal/core/bot"
	"offramp-assistant/internal/infrastructure/config"
)

// Client WhatsApp Cloud API 客戶端，實作 bot.Sender 與 bot.MediaFetcher
type Client struct {
	httpClient    *resty.Client
	phoneNumberID string
	accessToken   string
}

type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type interactivePayload struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Interactive      interactive `json:"interactive"`
}

type interactive struct {
	Type   string            `json:"type"`
	Body   textBody          `json:"body"`
	Action interactiveAction `json:"action"`
}

type interactiveAction struct {
	Buttons []replyButton `json:"buttons"`
}

type replyButton struct {
	Type  string      `json:"type"`
	Reply buttonReply `json:"reply"`
}

type buttonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// NewClient 創建 WhatsApp Cloud API 客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL("https://graph.facebook.com/"+cfg.WhatsApp.APIVersion).
		SetTimeout(cfg.WhatsApp.Timeout).
		SetHeader("Authorization", "Bearer "+cfg.WhatsApp.AccessToken).
		SetHeader("Content-Type", "application/json")

	return &Client{
		httpClient:    client,
		phoneNumberID: cfg.WhatsApp.PhoneNumberID,
		accessToken:   cfg.WhatsApp.AccessToken,
	}
}

// SendText 發送純文字訊息
func (c *Client) SendText(ctx context.Context, to, body string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(textPayload{
			MessagingProduct: "whatsapp",
			To:               to,
			Type:             "text",
			Text:             textBody{Body: body},
		}).
		Post("/" + c.phoneNumberID + "/messages")
	if err != nil {
		return fmt.Errorf("failed to send text message: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("WhatsApp API returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// SendButtons 發送互動按鈕訊息。Cloud API 限制單則最多三個按鈕，
// 超出部分由呼叫端分批。
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []bot.Button) error {
	if len(buttons) == 0 {
		return fmt.Errorf("button list must not be empty")
	}

	replies := make([]replyButton, 0, len(buttons))
	for _, b := range buttons {
		replies = append(replies, replyButton{
			Type:  "reply",
			Reply: buttonReply{ID: b.ID, Title: b.Title},
		})
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(interactivePayload{
			MessagingProduct: "whatsapp",
			To:               to,
			Type:             "interactive",
			Interactive: interactive{
				Type:   "button",
				Body:   textBody{Body: body},
				Action: interactiveAction{Buttons: replies},
			},
		}).
		Post("/" + c.phoneNumberID + "/messages")
	if err != nil {
		return fmt.Errorf("failed to send interactive message: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("WhatsApp API returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// GetMediaURL 查詢媒體的暫時下載網址
func (c *Client) GetMediaURL(ctx context.Context, mediaID string) (string, error) {
	var result struct {
		URL string `json:"url"`
	}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("fields", "url").
		SetResult(&result).
		Get("/" + mediaID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch media URL: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return "", fmt.Errorf("WhatsApp media API returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.URL == "" {
		return "", fmt.Errorf("unexpected media URL response shape")
	}
	return result.URL, nil
}

// DownloadMedia 下載媒體內容。下載網址在 Graph API 網域之外，
// 需另起請求並帶上授權標頭。
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) ([]byte, error) {
	mediaURL, err := c.GetMediaURL(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	resp, err := resty.New().
		SetTimeout(c.httpClient.GetClient().Timeout).
		R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.accessToken).
		Get(mediaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("media download returned status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}
