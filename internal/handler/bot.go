package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/minsu-dev/factory-ops/internal/model"
	"github.com/minsu-dev/factory-ops/internal/repository"
)

// Display limits of the KakaoTalk chat bubble.
const (
	botMaxLines = 15
	botMaxChars = 1000
)

// BotHandler answers the KakaoTalk chatbot skill webhook with a plain-text
// stock report. Read-only; no reconciliation involved.
type BotHandler struct {
	Items *repository.ItemRepo
	Log   *logrus.Logger
}

func NewBotHandler(items *repository.ItemRepo, log *logrus.Logger) *BotHandler {
	return &BotHandler{Items: items, Log: log}
}

// ----- Kakao skill v2.0 wire shapes -----

type kakaoSkillReq struct {
	Action struct {
		Params map[string]string `json:"params"`
	} `json:"action"`
}

type kakaoSimpleText struct {
	SimpleText struct {
		Text string `json:"text"`
	} `json:"simpleText"`
}

type kakaoQuickReply struct {
	Label       string `json:"label"`
	Action      string `json:"action"`
	MessageText string `json:"messageText"`
}

type kakaoSkillResp struct {
	Version  string `json:"version"`
	Template struct {
		Outputs      []kakaoSimpleText `json:"outputs"`
		QuickReplies []kakaoQuickReply `json:"quickReplies,omitempty"`
	} `json:"template"`
}

func kakaoText(text string, quickReplies []kakaoQuickReply) kakaoSkillResp {
	if runes := []rune(text); len(runes) > botMaxChars {
		text = string(runes[:botMaxChars])
	}
	var resp kakaoSkillResp
	resp.Version = "2.0"
	var out kakaoSimpleText
	out.SimpleText.Text = text
	resp.Template.Outputs = []kakaoSimpleText{out}
	resp.Template.QuickReplies = quickReplies
	return resp
}

var botQuickReplies = []kakaoQuickReply{
	{Label: "전체 재고", Action: "message", MessageText: "/재고 전체"},
	{Label: "완제품 보기", Action: "message", MessageText: "/재고 완제품"},
	{Label: "원자재 보기", Action: "message", MessageText: "/재고 원자재"},
}

// botCategory resolves the chat parameter to a display label and the ledger
// category it filters on. The chat vocabulary (완제품/원자재) predates the
// ledger's category names.
func botCategory(params map[string]string) (label, ledgerCategory string) {
	switch {
	case params["완제품"] != "":
		return "완제품", "생산품"
	case params["원자재"] != "":
		return "원자재", "자재"
	case params["category"] != "":
		c := params["category"]
		switch c {
		case "완제품", "생산품":
			return "완제품", "생산품"
		case "원자재", "자재":
			return "원자재", "자재"
		case "전체":
			return "전체", ""
		}
		return c, c
	}
	return "전체", ""
}

// formatStockReport renders the chat bubble body: header, up to
// botMaxLines item lines, and an overflow note.
func formatStockReport(label string, items []model.Item) string {
	if len(items) == 0 {
		return fmt.Sprintf("⚠️ [%s] 조회 결과가 없습니다.", label)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📦 [%s] 재고 현황\n━━━━━━━━━━━━━━\n", label)
	shown := items
	if len(shown) > botMaxLines {
		shown = shown[:botMaxLines]
	}
	for _, it := range shown {
		fmt.Fprintf(&b, "• %s (%s/%s): %s개\n", it.Name, it.Size, it.Length, it.Quantity)
	}
	if extra := len(items) - botMaxLines; extra > 0 {
		fmt.Fprintf(&b, "\n...외 %d건이 더 있습니다.", extra)
	}
	return b.String()
}

// Webhook handles POST /api/bot. Errors still answer 200; the chat client
// renders whatever text it gets and retries on non-200.
func (h *BotHandler) Webhook(c echo.Context) error {
	var req kakaoSkillReq
	if err := c.Bind(&req); err != nil {
		h.Log.WithError(err).Warn("bot: malformed skill payload")
		return c.JSON(http.StatusOK, kakaoText("죄송합니다. 요청을 이해하지 못했습니다.", nil))
	}
	label, category := botCategory(req.Action.Params)

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Items.InStock(ctx, category)
	if err != nil {
		h.Log.WithError(err).Error("bot: stock query failed")
		return c.JSON(http.StatusOK, kakaoText("죄송합니다. 서버 통신 중 오류가 발생했습니다.", nil))
	}
	return c.JSON(http.StatusOK, kakaoText(formatStockReport(label, items), botQuickReplies))
}
