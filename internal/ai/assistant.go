// Package ai produces sales-assistant replies with Gemini.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/onceloved/storefront/internal/catalog"
	"github.com/onceloved/storefront/internal/models"
)

const DefaultModel = "gemini-2.5-flash"

var ErrEmptyReply = errors.New("assistant returned an empty reply")

const systemPrompt = `당신은 중고 디자이너 가구 편집숍의 상담 직원입니다.
고객의 질문에 친절하고 간결하게 한국어로 답변하세요.
상품 정보가 주어지면 그 정보만을 근거로 답하고, 모르는 내용은 추측하지 말고 상담원 연결을 안내하세요.
가격은 원 단위로 표기하세요.`

// Turn is one earlier message of the conversation.
type Turn struct {
	Role    models.MessageRole
	Content string
}

// Request is one user message. ProductContext is the rendered output of
// ProductContext for the product under discussion, if any.
type Request struct {
	Message        string
	ProductContext string
	History        []Turn
}

type Assistant interface {
	Reply(ctx context.Context, req Request) (string, error)
}

type GeminiAssistant struct {
	client *genai.Client
	model  string
}

func NewGeminiAssistant(ctx context.Context, apiKey, model string) (*GeminiAssistant, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiAssistant{client: client, model: model}, nil
}

func (a *GeminiAssistant) Reply(ctx context.Context, req Request) (string, error) {
	contents := BuildContents(req)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction(req.ProductContext), genai.RoleUser),
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// SystemInstruction is the base prompt with the product facts appended.
func SystemInstruction(productContext string) string {
	if strings.TrimSpace(productContext) == "" {
		return systemPrompt
	}
	return systemPrompt + "\n\n" + productContext
}

// ProductContext renders the facts the assistant may rely on.
func ProductContext(product *models.Product) string {
	var b strings.Builder
	b.WriteString("[상품 정보]\n")
	fmt.Fprintf(&b, "상품명: %s\n", product.Name)
	if product.Brand != "" {
		fmt.Fprintf(&b, "브랜드: %s\n", catalog.BrandLabel(product.Brand))
	}
	if product.Designer != "" {
		fmt.Fprintf(&b, "디자이너: %s\n", product.Designer)
	}
	if product.Category != "" {
		fmt.Fprintf(&b, "카테고리: %s\n", catalog.CategoryLabel(product.Category))
	}
	if product.Condition != "" {
		fmt.Fprintf(&b, "상태: %s\n", catalog.ConditionLabel(product.Condition))
	}
	if product.OriginalPrice > 0 {
		fmt.Fprintf(&b, "정가: %d원\n", product.OriginalPrice)
	}
	if price := catalog.ListPrice(product); price > 0 {
		fmt.Fprintf(&b, "판매가: %d원\n", price)
	}
	fmt.Fprintf(&b, "재고: %d개\n", product.Stock)
	if product.Dimensions != "" {
		fmt.Fprintf(&b, "크기: %s\n", product.Dimensions)
	}
	if product.Materials != "" {
		fmt.Fprintf(&b, "소재: %s\n", product.Materials)
	}
	for _, option := range product.Options {
		values := make([]string, 0, len(option.Values))
		for _, value := range option.Values {
			label := value.Name
			if label == "" {
				label = value.ID
			}
			if value.StockQuantity != nil {
				label = fmt.Sprintf("%s(재고 %d)", label, *value.StockQuantity)
			}
			values = append(values, label)
		}
		name := option.Name
		if name == "" {
			name = option.ID
		}
		fmt.Fprintf(&b, "옵션 %s: %s\n", name, strings.Join(values, ", "))
	}
	if product.Description != "" {
		fmt.Fprintf(&b, "설명: %s\n", product.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildContents maps prior turns onto Gemini roles and ends with the new message.
func BuildContents(req Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if turn.Role == models.MessageAssistant || turn.Role == models.MessageAdmin {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(content, role))
	}
	return append(contents, genai.NewContentFromText(req.Message, genai.RoleUser))
}
