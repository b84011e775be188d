package handler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minsu-dev/factory-ops/internal/model"
)

func stockItem(name string, qty int64) model.Item {
	return model.Item{Name: name, Size: "-", Length: "-", Quantity: decimal.NewFromInt(qty)}
}

func TestBotCategory(t *testing.T) {
	tests := []struct {
		params     map[string]string
		wantLabel  string
		wantFilter string
	}{
		{map[string]string{}, "전체", ""},
		{map[string]string{"완제품": "완제품"}, "완제품", "생산품"},
		{map[string]string{"원자재": "원자재"}, "원자재", "자재"},
		{map[string]string{"category": "전체"}, "전체", ""},
		{map[string]string{"category": "생산품"}, "완제품", "생산품"},
		{map[string]string{"category": "기타"}, "기타", "기타"},
	}
	for _, tt := range tests {
		label, filter := botCategory(tt.params)
		assert.Equal(t, tt.wantLabel, label)
		assert.Equal(t, tt.wantFilter, filter)
	}
}

func TestFormatStockReport_Empty(t *testing.T) {
	got := formatStockReport("완제품", nil)
	assert.Equal(t, "⚠️ [완제품] 조회 결과가 없습니다.", got)
}

func TestFormatStockReport_ListsItems(t *testing.T) {
	items := []model.Item{stockItem("Pipe", 7), stockItem("Widget", 3)}
	got := formatStockReport("전체", items)

	assert.Contains(t, got, "[전체] 재고 현황")
	assert.Contains(t, got, "• Pipe (-/-): 7개")
	assert.Contains(t, got, "• Widget (-/-): 3개")
	assert.NotContains(t, got, "더 있습니다")
}

func TestFormatStockReport_CapsAtFifteenLines(t *testing.T) {
	items := make([]model.Item, 0, 20)
	for i := 0; i < 20; i++ {
		items = append(items, stockItem(fmt.Sprintf("Item%02d", i), 1))
	}
	got := formatStockReport("전체", items)

	assert.Equal(t, botMaxLines, strings.Count(got, "• "))
	assert.Contains(t, got, "...외 5건이 더 있습니다.")
}

func TestKakaoText_TruncatesWithoutSplittingRunes(t *testing.T) {
	long := strings.Repeat("가", botMaxChars+50)
	resp := kakaoText(long, nil)

	require.Len(t, resp.Template.Outputs, 1)
	text := resp.Template.Outputs[0].SimpleText.Text
	assert.Equal(t, botMaxChars, len([]rune(text)))
	assert.Equal(t, "2.0", resp.Version)
}

func TestKakaoText_CarriesQuickReplies(t *testing.T) {
	resp := kakaoText("ok", botQuickReplies)
	require.Len(t, resp.Template.QuickReplies, 3)
	assert.Equal(t, "전체 재고", resp.Template.QuickReplies[0].Label)
	assert.Equal(t, "message", resp.Template.QuickReplies[0].Action)
}
