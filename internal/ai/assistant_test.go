package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/onceloved/storefront/internal/models"
)

func TestProductContext(t *testing.T) {
	t.Parallel()

	stock := 1
	product := &models.Product{
		Name:          "Egg Chair",
		Brand:         "fritz-hansen",
		Designer:      "Arne Jacobsen",
		Category:      models.CategoryChair,
		Condition:     models.ConditionExcellent,
		OriginalPrice: 12000000,
		SalePrice:     6500000,
		Stock:         1,
		Options: []models.ProductOption{{
			ID:     "fabric",
			Name:   "패브릭",
			Values: []models.OptionValue{{ID: "red", Name: "레드", StockQuantity: &stock}, {ID: "grey"}},
		}},
	}

	got := ProductContext(product)
	assert.Contains(t, got, "상품명: Egg Chair")
	assert.Contains(t, got, "디자이너: Arne Jacobsen")
	assert.Contains(t, got, "판매가: 6500000원")
	assert.Contains(t, got, "옵션 패브릭: 레드(재고 1), grey")
	assert.False(t, strings.HasSuffix(got, "\n"))

	assert.Equal(t, systemPrompt, SystemInstruction(""))
	assert.Equal(t, systemPrompt+"\n\n"+got, SystemInstruction(got))
}

func TestBuildContents(t *testing.T) {
	t.Parallel()

	contents := BuildContents(Request{
		Message: "배송은 얼마나 걸리나요?",
		History: []Turn{
			{Role: models.MessageUser, Content: "안녕하세요"},
			{Role: models.MessageAssistant, Content: "무엇을 도와드릴까요?"},
			{Role: models.MessageUser, Content: "   "},
		},
	})

	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, string(genai.RoleUser), contents[2].Role)
	assert.Equal(t, "배송은 얼마나 걸리나요?", contents[2].Parts[0].Text)
}
