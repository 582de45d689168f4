package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"offramp-assistant/internal/core/ai"
)

func TestShouldRewrite(t *testing.T) {
	assert.True(t, ShouldRewrite(FlowIdle))
	assert.True(t, ShouldRewrite(FlowReplaceWaitDish))
	assert.True(t, ShouldRewrite(FlowSetRules))

	// 文案與按鈕強耦合的流程不改寫
	assert.False(t, ShouldRewrite(FlowReplaceRefining))
	assert.False(t, ShouldRewrite(FlowFindResults))
	assert.False(t, ShouldRewrite(FlowWizardReview))
}

func TestRewriteDisabledPassesThrough(t *testing.T) {
	r := NewRewriter(&scriptedCompleter{responses: []string{"polished"}}, ai.Options{}, false)
	msg := OutgoingMessage{Text: "original"}

	out := r.Rewrite(context.Background(), &Session{Flow: FlowIdle}, msg)

	assert.Equal(t, "original", out.Text)
}

func TestRewriteKeepsOriginalOnFailure(t *testing.T) {
	r := NewRewriter(&scriptedCompleter{errs: []error{errors.New("boom")}}, ai.Options{}, true)
	msg := OutgoingMessage{Text: "original"}

	out := r.Rewrite(context.Background(), &Session{Flow: FlowIdle}, msg)

	assert.Equal(t, "original", out.Text)
}

func TestRewriteReplacesTextAndKeepsButtons(t *testing.T) {
	r := NewRewriter(&scriptedCompleter{responses: []string{"  polished reply  "}}, ai.Options{}, true)
	msg := OutgoingMessage{Text: "original", Buttons: []Button{{ID: "a", Title: "A"}}}

	out := r.Rewrite(context.Background(), &Session{Flow: FlowIdle}, msg)

	assert.Equal(t, "polished reply", out.Text)
	assert.Equal(t, msg.Buttons, out.Buttons)
}

func TestRewriteSkipsCoupledFlows(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"polished"}}
	r := NewRewriter(completer, ai.Options{}, true)
	msg := OutgoingMessage{Text: "original"}

	out := r.Rewrite(context.Background(), &Session{Flow: FlowFindResults}, msg)

	assert.Equal(t, "original", out.Text)
	assert.Equal(t, 0, completer.calls)
}
