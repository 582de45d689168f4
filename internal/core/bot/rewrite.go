package bot

import (
	"context"
	"fmt"
	"strings"

	"offramp-assistant/internal/core/ai"
)

// AI 改寫：把固定文案交給模型潤飾，讓回覆口吻一致。
// 改寫失敗時原樣送出，按鈕永遠保留。

// ShouldRewrite 判斷目前流程是否適合改寫。
// 細調與精靈類流程的文案和按鈕強耦合，不改寫。
func ShouldRewrite(flow Flow) bool {
	switch flow {
	case FlowReplaceRefining, FlowFindWaitArea, FlowFindWaitRule, FlowFindResults,
		FlowWizardWaitImage, FlowWizardReview, FlowWizardTypeName:
		return false
	}
	return true
}

// Rewriter 出站訊息的 AI 潤飾器
type Rewriter struct {
	completer ai.Completer
	opts      ai.Options
	enabled   bool
}

// NewRewriter 創建潤飾器，enabled 為 false 時 Rewrite 直接原樣回傳
func NewRewriter(completer ai.Completer, opts ai.Options, enabled bool) *Rewriter {
	return &Rewriter{completer: completer, opts: opts, enabled: enabled}
}

// Rewrite 潤飾單則訊息。任何失敗都回傳原訊息。
func (r *Rewriter) Rewrite(ctx context.Context, sess *Session, msg OutgoingMessage) OutgoingMessage {
	if r == nil || !r.enabled || r.completer == nil {
		return msg
	}
	if !ShouldRewrite(sess.Flow) {
		return msg
	}

	contextSummary := fmt.Sprintf(
		"Flow: %s; step: %d; last dish: %s; preferences: diet=%s, taste=%s, budget=%s; restrictions=%s; allergies=%s",
		sess.Flow, sess.Step,
		orDash(sess.LastDish),
		orDash(sess.Prefs.Diet), orDash(sess.Prefs.Taste), orDash(sess.Prefs.Budget),
		orDash(strings.Join(sess.Prefs.RestrictionList(), ", ")),
		orDash(strings.Join(sess.Prefs.AllergyList(), ", ")),
	)

	prompt := "You are OFFRAMP on WhatsApp. Rewrite the assistant reply below into a single, fully AI-generated WhatsApp message. " +
		"Keep it short, friendly, and complete; follow the OFFRAMP rules (no repeated intros, no menus unless asked, plant-based focus, step-by-step help). " +
		"Do not drop the core info. If buttons are present, keep the text compatible with them." +
		"\nContext: " + contextSummary + "\n\nOriginal reply:\n" + msg.Text

	// 同樣的文案搭配同樣的會話脈絡會重複出現，走快取省請求
	var reply string
	var err error
	if cached, ok := r.completer.(ai.CachedCompleter); ok {
		reply, err = cached.CompleteCached(ctx, prompt, r.opts)
	} else {
		reply, err = r.completer.Complete(ctx, []ai.Message{ai.TextMessage("user", prompt)}, r.opts)
	}
	if err != nil || strings.TrimSpace(reply) == "" {
		return msg
	}
	return OutgoingMessage{Text: strings.TrimSpace(reply), Buttons: msg.Buttons}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
