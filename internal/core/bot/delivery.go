package bot

import (
	"context"
	"fmt"
	"strings"

	"offramp-assistant/internal/pkg/common"
)

// Cloud API 單則互動訊息最多三個按鈕
const buttonsPerMessage = 3

// Deliver 發送單則出站訊息。按鈕超過上限時分批，
// 第一批帶原文，後續批次用延續文案。互動發送失敗時
// 降級為文字加項目符號清單，送出錯誤只記錄不上拋。
func Deliver(ctx context.Context, sender Sender, to string, msg OutgoingMessage) {
	if len(msg.Buttons) == 0 {
		if err := sender.SendText(ctx, to, msg.Text); err != nil {
			common.LogError(fmt.Sprintf("回覆發送失敗: to=%s err=%v", to, err))
		}
		return
	}

	for start := 0; start < len(msg.Buttons); start += buttonsPerMessage {
		end := start + buttonsPerMessage
		if end > len(msg.Buttons) {
			end = len(msg.Buttons)
		}
		body := msg.Text
		if start > 0 {
			body = "More options 👇"
		}

		if err := sender.SendButtons(ctx, to, body, msg.Buttons[start:end]); err != nil {
			common.LogError(fmt.Sprintf("按鈕發送失敗: to=%s err=%v", to, err))

			var lines []string
			for _, b := range msg.Buttons {
				lines = append(lines, "• "+b.Title)
			}
			fallbackText := msg.Text + "\n\n" + strings.Join(lines, "\n")
			if err := sender.SendText(ctx, to, fallbackText); err != nil {
				common.LogError(fmt.Sprintf("降級發送失敗: to=%s err=%v", to, err))
			}
			return
		}
	}
}
